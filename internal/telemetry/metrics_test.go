package telemetry_test

import (
	"testing"

	"ordersync/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestSyncMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := telemetry.NewSyncMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := t.Context()
	m.Applied(ctx, "feed", "insert")
	m.Applied(ctx, "reload", "replace")
	m.Discarded(ctx, "feed", "stale")
	m.Reloaded(ctx)
	m.ReloadFailed(ctx)
	m.PendingWrites(ctx, 2)
	m.PendingWrites(ctx, -1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	totals := map[string]int64{}
	for _, metrics := range rm.ScopeMetrics[0].Metrics {
		sum, ok := metrics.Data.(metricdata.Sum[int64])
		require.True(t, ok, metrics.Name)
		for _, dp := range sum.DataPoints {
			totals[metrics.Name] += dp.Value
		}
	}

	assert.Equal(t, map[string]int64{
		"ordersync.events.applied":   2,
		"ordersync.events.discarded": 1,
		"ordersync.reloads":          1,
		"ordersync.reload.failures":  1,
		"ordersync.pending_writes":   1,
	}, totals)
}

func TestInitMeterProvider(t *testing.T) {
	handler, shutdown, err := telemetry.InitMeterProvider("ordersync-test", "test")

	require.NoError(t, err)
	assert.NotNil(t, handler)
	require.NoError(t, shutdown(t.Context()))
}

func TestInitTracerProvider_WithoutEndpoint(t *testing.T) {
	shutdown, err := telemetry.InitTracerProvider(t.Context(), "", "ordersync-test", "test")

	require.NoError(t, err)
	require.NoError(t, shutdown(t.Context()))
}
