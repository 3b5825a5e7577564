package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	obsmetrics "github.com/smallbiznis/giftbot/internal/observability/metrics"
	"github.com/smallbiznis/giftbot/internal/providers/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sliceSource struct {
	updates []telegram.Update
}

func (s sliceSource) Updates(ctx context.Context) <-chan telegram.Update {
	out := make(chan telegram.Update)
	go func() {
		defer close(out)
		for _, upd := range s.updates {
			select {
			case out <- upd:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

type recordingHandler struct {
	mu     sync.Mutex
	byChat map[int64][]int
	fail   map[int]error
	panics map[int]bool
}

func (h *recordingHandler) Handle(_ context.Context, upd telegram.Update) error {
	if h.panics[upd.ID] {
		panic("boom")
	}
	h.mu.Lock()
	h.byChat[upd.ChatID()] = append(h.byChat[upd.ChatID()], upd.ID)
	h.mu.Unlock()
	return h.fail[upd.ID]
}

func message(id int, chatID int64) telegram.Update {
	return telegram.Update{ID: id, Message: &telegram.Message{
		ChatID: chatID, From: telegram.User{ID: chatID}, Text: "/status", Command: "status",
	}}
}

func TestRunnerKeepsPerChatOrder(t *testing.T) {
	var updates []telegram.Update
	for i := 1; i <= 60; i++ {
		updates = append(updates, message(i, int64(i%3+1)))
	}

	handler := &recordingHandler{byChat: map[int64][]int{}}
	registry := prometheus.NewRegistry()
	metrics := obsmetrics.NewBotMetrics(registry, obsmetrics.Config{ServiceName: "giftbot-test"})
	r := newRunner(zap.NewNop(), sliceSource{updates: updates}, handler, metrics, 4)

	r.Run(context.Background())

	total := 0
	for chatID, ids := range handler.byChat {
		total += len(ids)
		for i := 1; i < len(ids); i++ {
			assert.Less(t, ids[i-1], ids[i], "chat %d out of order", chatID)
		}
	}
	assert.Equal(t, 60, total)

	count, err := testutil.GatherAndCount(registry, "giftbot_updates_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunnerSurvivesPanicsAndErrors(t *testing.T) {
	handler := &recordingHandler{
		byChat: map[int64][]int{},
		fail:   map[int]error{2: errors.New("send failed")},
		panics: map[int]bool{1: true},
	}
	registry := prometheus.NewRegistry()
	metrics := obsmetrics.NewBotMetrics(registry, obsmetrics.Config{})
	source := sliceSource{updates: []telegram.Update{
		message(1, -100),
		message(2, -100),
		{ID: 3, Callback: &telegram.Callback{ID: "x", From: telegram.User{ID: 5}, Data: "noop"}},
	}}

	r := newRunner(zap.NewNop(), source, handler, metrics, 2)
	r.Run(context.Background())

	assert.Equal(t, []int{2}, handler.byChat[-100])
	assert.Equal(t, []int{3}, handler.byChat[5])
	assert.Equal(t, 1.0, gathered(t, registry, "giftbot_update_panics_total"))
	assert.Equal(t, 0.0, gathered(t, registry, "giftbot_update_queue_depth"))
	assert.Equal(t, 3.0, gathered(t, registry, "giftbot_updates_total"))
}

// gathered sums every series of a counter or gauge family.
func gathered(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			total += m.GetCounter().GetValue() + m.GetGauge().GetValue()
		}
	}
	return total
}

func TestRunnerStopsOnCancel(t *testing.T) {
	handler := &recordingHandler{byChat: map[int64][]int{}}
	ctx, cancel := context.WithCancel(context.Background())
	r := newRunner(zap.NewNop(), blockingSource{}, handler, nil, 0)

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

type blockingSource struct{}

func (blockingSource) Updates(ctx context.Context) <-chan telegram.Update {
	out := make(chan telegram.Update)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out
}

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, obsmetrics.UpdateKindCommand, updateKind(message(1, 1)))
	assert.Equal(t, obsmetrics.UpdateKindMessage, updateKind(telegram.Update{Message: &telegram.Message{Text: "hi"}}))
	assert.Equal(t, obsmetrics.UpdateKindCallback, updateKind(telegram.Update{Callback: &telegram.Callback{}}))
	assert.Equal(t, obsmetrics.UpdateKindOther, updateKind(telegram.Update{}))
}

type denyGate struct {
	denied map[int64]bool
}

func (g denyGate) AcquirePollerLease(ctx context.Context) (context.Context, error) {
	return ctx, nil
}

func (g denyGate) AllowUser(_ context.Context, userID int64) bool {
	return !g.denied[userID]
}

func TestRunnerDropsThrottledUsers(t *testing.T) {
	handler := &recordingHandler{byChat: map[int64][]int{}}
	registry := prometheus.NewRegistry()
	metrics := obsmetrics.NewBotMetrics(registry, obsmetrics.Config{})
	source := sliceSource{updates: []telegram.Update{message(1, 10), message(2, 20), message(3, 10)}}

	r := newRunner(zap.NewNop(), source, handler, metrics, 1)
	r.gate = denyGate{denied: map[int64]bool{10: true}}
	r.Run(context.Background())

	assert.Empty(t, handler.byChat[10])
	assert.Equal(t, []int{2}, handler.byChat[20])
	assert.Equal(t, 2.0, gathered(t, registry, "giftbot_updates_throttled_total"))
}

type noLeaseGate struct{ denyGate }

func (noLeaseGate) AcquirePollerLease(ctx context.Context) (context.Context, error) {
	return nil, context.Canceled
}

func TestRunnerWithoutLeaseDoesNotPoll(t *testing.T) {
	handler := &recordingHandler{byChat: map[int64][]int{}}
	r := newRunner(zap.NewNop(), sliceSource{updates: []telegram.Update{message(1, 10)}}, handler, nil, 1)
	r.gate = noLeaseGate{}

	r.Run(context.Background())
	assert.Empty(t, handler.byChat)
}
