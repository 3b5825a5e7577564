package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	UpdateKindCommand  = "command"
	UpdateKindCallback = "callback"
	UpdateKindMessage  = "message"
	UpdateKindOther    = "other"
)

// BotMetrics is scraped from /metrics and tracks the update pipeline.
type BotMetrics struct {
	updates        *prometheus.CounterVec
	updateDuration *prometheus.HistogramVec
	updatePanics   *prometheus.CounterVec
	throttled      prometheus.Counter
	queueDepth     prometheus.Gauge
}

func NewBotMetrics(registerer prometheus.Registerer, cfg Config) *BotMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "giftbot"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	updates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "giftbot_updates_total",
		Help:        "Telegram updates handled by kind.",
		ConstLabels: constLabels,
	}, []string{"kind"})
	updateDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "giftbot_update_duration_seconds",
		Help:        "Time spent handling one update, including Bot API calls.",
		Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	}, []string{"kind"})
	updatePanics := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "giftbot_update_panics_total",
		Help:        "Handler panics recovered by the worker pool.",
		ConstLabels: constLabels,
	}, []string{"kind"})
	throttled := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "giftbot_updates_throttled_total",
		Help:        "Updates dropped by the per-user rate limit.",
		ConstLabels: constLabels,
	})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "giftbot_update_queue_depth",
		Help:        "Updates received but not yet picked up by a worker.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(updates, updateDuration, updatePanics, throttled, queueDepth)

	return &BotMetrics{
		updates:        updates,
		updateDuration: updateDuration,
		updatePanics:   updatePanics,
		throttled:      throttled,
		queueDepth:     queueDepth,
	}
}

func (m *BotMetrics) ObserveUpdate(kind string, duration time.Duration) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind).Inc()
	m.updateDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *BotMetrics) IncPanic(kind string) {
	if m == nil {
		return
	}
	m.updatePanics.WithLabelValues(kind).Inc()
}

func (m *BotMetrics) IncThrottled() {
	if m == nil {
		return
	}
	m.throttled.Inc()
}

func (m *BotMetrics) QueueAdd(delta float64) {
	if m == nil {
		return
	}
	m.queueDepth.Add(delta)
}
