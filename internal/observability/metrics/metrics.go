package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes giveaway-level instruments.
type Metrics struct {
	requests        metric.Int64Counter
	decisions       metric.Int64Counter
	giftDeliveries  metric.Int64Counter
	ledgerEntries   metric.Int64Counter
	transportErrors metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(30*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the domain instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "giftbot"
	}
	meter := provider.Meter(name)

	requests, err := meter.Int64Counter("giftbot_subscription_requests_total")
	if err != nil {
		return nil, err
	}
	decisions, err := meter.Int64Counter("giftbot_request_decisions_total")
	if err != nil {
		return nil, err
	}
	giftDeliveries, err := meter.Int64Counter("giftbot_gift_deliveries_total")
	if err != nil {
		return nil, err
	}
	ledgerEntries, err := meter.Int64Counter("giftbot_ledger_entries_total")
	if err != nil {
		return nil, err
	}
	transportErrors, err := meter.Int64Counter("giftbot_transport_errors_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requests:        requests,
		decisions:       decisions,
		giftDeliveries:  giftDeliveries,
		ledgerEntries:   ledgerEntries,
		transportErrors: transportErrors,
	}, nil
}

// RecordRequest counts gift requests by outcome.
func (m *Metrics) RecordRequest(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)...))
}

// RecordDecision counts admin and system decisions on requests.
func (m *Metrics) RecordDecision(ctx context.Context, status, actor string) {
	if m == nil {
		return
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("status", strings.TrimSpace(status)),
		attribute.String("actor", strings.TrimSpace(actor)),
	)...))
}

// RecordGiftDelivery counts gift notifications by delivery path.
func (m *Metrics) RecordGiftDelivery(ctx context.Context, path string) {
	if m == nil {
		return
	}
	m.giftDeliveries.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("path", strings.TrimSpace(path)),
	)...))
}

// RecordLedgerEntry counts ledger writes by operation.
func (m *Metrics) RecordLedgerEntry(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.ledgerEntries.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
	)...))
}

// RecordTransportError counts failed Bot API calls.
func (m *Metrics) RecordTransportError(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.transportErrors.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("method", strings.TrimSpace(method)),
	)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"outcome":   {},
	"status":    {},
	"actor":     {},
	"path":      {},
	"operation": {},
	"method":    {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// User and chat ids never become labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
