package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("outcome", "pending"),
		attribute.Int64("user_id", 42),
		attribute.String("path", "approval"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("outcome"), attrs[0].Key)
	assert.Equal(t, attribute.Key("path"), attrs[1].Key)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest(context.Background(), "pending")
	m.RecordGiftDelivery(context.Background(), "approval")

	var b *BotMetrics
	b.ObserveUpdate(UpdateKindCommand, time.Second)
	b.IncPanic(UpdateKindCommand)
	b.QueueAdd(1)
}

func TestMetricsRecordThroughSDK(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := New(Config{ServiceName: "giftbot-test"}, provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRequest(ctx, "auto_approved")
	m.RecordRequest(ctx, "auto_approved")
	m.RecordLedgerEntry(ctx, "add")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, point := range sum.DataPoints {
				totals[metric.Name] += point.Value
			}
		}
	}
	assert.Equal(t, int64(2), totals["giftbot_subscription_requests_total"])
	assert.Equal(t, int64(1), totals["giftbot_ledger_entries_total"])
}

func TestBotMetricsCountUpdates(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBotMetrics(reg, Config{ServiceName: "giftbot", Environment: "test"})

	m.ObserveUpdate(UpdateKindCallback, 20*time.Millisecond)
	m.ObserveUpdate(UpdateKindCallback, 30*time.Millisecond)
	m.QueueAdd(3)
	m.QueueAdd(-1)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.updates.WithLabelValues(UpdateKindCallback)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.queueDepth))
}
