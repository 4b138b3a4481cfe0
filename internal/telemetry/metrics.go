package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMeterProvider installs a global MeterProvider backed by the Prometheus
// exporter. It returns the /metrics handler and a shutdown function.
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(newResource(serviceName, serviceVersion)),
	)
	otel.SetMeterProvider(mp)

	return promhttp.Handler(), mp.Shutdown, nil
}

// SyncMetrics are the instruments of the reconciliation engine.
type SyncMetrics struct {
	eventsApplied   metric.Int64Counter
	eventsDiscarded metric.Int64Counter
	reloads         metric.Int64Counter
	reloadFailures  metric.Int64Counter
	pendingWrites   metric.Int64UpDownCounter
}

// NewSyncMetrics registers the engine instruments on meter.
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	m := &SyncMetrics{}
	var err error

	if m.eventsApplied, err = meter.Int64Counter("ordersync.events.applied",
		metric.WithDescription("Incoming order records stored in the local cache")); err != nil {
		return nil, err
	}
	if m.eventsDiscarded, err = meter.Int64Counter("ordersync.events.discarded",
		metric.WithDescription("Incoming order records dropped as stale, hidden or out of scope")); err != nil {
		return nil, err
	}
	if m.reloads, err = meter.Int64Counter("ordersync.reloads",
		metric.WithDescription("Completed full reloads")); err != nil {
		return nil, err
	}
	if m.reloadFailures, err = meter.Int64Counter("ordersync.reload.failures",
		metric.WithDescription("Full reloads that failed to reach the remote service")); err != nil {
		return nil, err
	}
	if m.pendingWrites, err = meter.Int64UpDownCounter("ordersync.pending_writes",
		metric.WithDescription("Remote writes waiting for retry")); err != nil {
		return nil, err
	}

	return m, nil
}

// MustSyncMetrics is NewSyncMetrics for meters that cannot fail, such as the
// global or a no-op meter.
func MustSyncMetrics(meter metric.Meter) *SyncMetrics {
	m, err := NewSyncMetrics(meter)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *SyncMetrics) Applied(ctx context.Context, source, action string) {
	m.eventsApplied.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("action", action),
	))
}

func (m *SyncMetrics) Discarded(ctx context.Context, source, reason string) {
	m.eventsDiscarded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("reason", reason),
	))
}

func (m *SyncMetrics) Reloaded(ctx context.Context) {
	m.reloads.Add(ctx, 1)
}

func (m *SyncMetrics) ReloadFailed(ctx context.Context) {
	m.reloadFailures.Add(ctx, 1)
}

func (m *SyncMetrics) PendingWrites(ctx context.Context, delta int64) {
	m.pendingWrites.Add(ctx, delta)
}
