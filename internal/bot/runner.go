package bot

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/giftbot/internal/config"
	obslogger "github.com/smallbiznis/giftbot/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/giftbot/internal/observability/metrics"
	"github.com/smallbiznis/giftbot/internal/providers/telegram"
	"github.com/smallbiznis/giftbot/internal/ratelimit"
	"github.com/smallbiznis/giftbot/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const workerQueueSize = 64

type UpdateHandler interface {
	Handle(ctx context.Context, upd telegram.Update) error
}

// Gate decides which replica polls and which users are served.
type Gate interface {
	AcquirePollerLease(ctx context.Context) (context.Context, error)
	AllowUser(ctx context.Context, userID int64) bool
}

type RunnerParams struct {
	fx.In

	Log        *zap.Logger
	Config     config.Config
	Source     telegram.UpdateSource
	Handler    *Handler
	Limiter    *ratelimit.Limiter     `optional:"true"`
	BotMetrics *obsmetrics.BotMetrics `optional:"true"`
}

// Runner fans updates out to a fixed set of workers. Updates of one chat
// always land on the same worker, so they are handled in arrival order.
type Runner struct {
	log     *zap.Logger
	source  telegram.UpdateSource
	handler UpdateHandler
	gate    Gate
	metrics *obsmetrics.BotMetrics
	tracer  trace.Tracer
	workers int
}

func NewRunner(p RunnerParams) *Runner {
	r := newRunner(p.Log, p.Source, p.Handler, p.BotMetrics, p.Config.BotWorkers)
	r.gate = p.Limiter
	return r
}

func newRunner(log *zap.Logger, source telegram.UpdateSource, handler UpdateHandler, metrics *obsmetrics.BotMetrics, workers int) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		log:     log.Named("bot.runner"),
		source:  source,
		handler: handler,
		// A nil limiter grants the lease and allows every user.
		gate:    (*ratelimit.Limiter)(nil),
		metrics: metrics,
		tracer:  otel.Tracer("giftbot/bot"),
		workers: workers,
	}
}

// Run blocks until ctx is cancelled or the poller lease is lost, and the
// update source closes. Queued updates are drained before it returns.
func (r *Runner) Run(ctx context.Context) {
	pollCtx, err := r.gate.AcquirePollerLease(ctx)
	if err != nil {
		r.log.Info("bot runner stopped before polling", zap.Error(err))
		return
	}

	queues := make([]chan telegram.Update, r.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan telegram.Update, workerQueueSize)
		wg.Add(1)
		go func(q <-chan telegram.Update) {
			defer wg.Done()
			for upd := range q {
				r.metrics.QueueAdd(-1)
				r.process(context.WithoutCancel(ctx), upd)
			}
		}(queues[i])
	}

	r.log.Info("bot runner started", zap.Int("workers", r.workers))
	for upd := range r.source.Updates(pollCtx) {
		r.metrics.QueueAdd(1)
		queues[r.shard(upd)] <- upd
	}

	for _, q := range queues {
		close(q)
	}
	wg.Wait()
	r.log.Info("bot runner stopped")
}

func (r *Runner) shard(upd telegram.Update) int {
	key := upd.ChatID()
	if key < 0 {
		key = -key
	}
	return int(key % int64(r.workers))
}

func (r *Runner) process(ctx context.Context, upd telegram.Update) {
	kind := updateKind(upd)
	start := time.Now()

	ctx, _ = correlation.EnsureCorrelationID(ctx)
	ctx, span := r.tracer.Start(ctx, "bot.update."+kind,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.Int("telegram.update_id", upd.ID),
			attribute.String("telegram.update_kind", kind),
		),
	)
	correlation.Annotate(ctx, span)
	defer span.End()

	log := obslogger.WithUpdate(obslogger.WithContext(ctx, r.log), upd.ID, upd.ChatID(), upd.UserID())

	if !r.gate.AllowUser(ctx, upd.UserID()) {
		r.metrics.IncThrottled()
		log.Debug("update throttled")
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.IncPanic(kind)
			span.SetStatus(codes.Error, "panic")
			log.Error("update handler panicked", zap.Any("panic", rec), zap.Stack("stack"))
		}
		r.metrics.ObserveUpdate(kind, time.Since(start))
	}()

	if err := r.handler.Handle(ctx, upd); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("update handling failed", zap.Error(err))
		return
	}
	log.Debug("update handled", zap.String("kind", kind))
}

func updateKind(upd telegram.Update) string {
	switch {
	case upd.Callback != nil:
		return obsmetrics.UpdateKindCallback
	case upd.Message != nil && upd.Message.Command != "":
		return obsmetrics.UpdateKindCommand
	case upd.Message != nil:
		return obsmetrics.UpdateKindMessage
	}
	return obsmetrics.UpdateKindOther
}
