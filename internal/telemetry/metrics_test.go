package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordsLifecycle(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := NewMetrics(provider.Meter(MeterName))
	require.NoError(t, err)

	metrics.CheckIssued(ctx)
	metrics.CheckIssued(ctx)
	metrics.CheckDecided(ctx, "Accepted", false)
	metrics.LedgerFailure(ctx, "update")
	metrics.DeliveryFailed(ctx)

	got := collect(t, reader)

	assert.Equal(t, int64(2), sumOf(t, got[ChecksIssuedMetric]))
	assert.Equal(t, int64(1), sumOf(t, got[ChecksDecidedMetric]))
	assert.Equal(t, int64(1), sumOf(t, got[PendingChecksMetric]))
	assert.Equal(t, int64(1), sumOf(t, got[LedgerFailureMetric]))
	assert.Equal(t, int64(1), sumOf(t, got[DeliveryFailedMetric]))

	decided := got[ChecksDecidedMetric].Data.(metricdata.Sum[int64])
	require.Len(t, decided.DataPoints, 1)
	status, ok := decided.DataPoints[0].Attributes.Value(attribute.Key("status"))
	require.True(t, ok)
	assert.Equal(t, "Accepted", status.AsString())
	synced, ok := decided.DataPoints[0].Attributes.Value(attribute.Key("ledger_synced"))
	require.True(t, ok)
	assert.False(t, synced.AsBool())
}

func TestMetrics_NilAndNoopAreSafe(t *testing.T) {
	ctx := context.Background()

	var metrics *Metrics
	assert.NotPanics(t, func() {
		metrics.CheckIssued(ctx)
		metrics.CheckDecided(ctx, "Rejected", true)
		metrics.LedgerFailure(ctx, "append")
		metrics.DeliveryFailed(ctx)
	})

	noopMetrics := NewNoopMetrics()
	require.NotNil(t, noopMetrics)
	assert.NotPanics(t, func() {
		noopMetrics.CheckIssued(ctx)
	})
}

func TestNewMeterProvider_DisabledWithoutEndpoint(t *testing.T) {
	provider, shutdown, err := NewMeterProvider(context.Background(), "")
	require.NoError(t, err)

	metrics, err := NewMetrics(provider.Meter(MeterName))
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		metrics.CheckIssued(context.Background())
	})
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewMeterProvider_OTLPExporter(t *testing.T) {
	// The gRPC exporter connects lazily, so construction succeeds without a collector
	provider, shutdown, err := NewMeterProvider(context.Background(), "localhost:4317")
	require.NoError(t, err)
	require.NotNil(t, provider)

	_, ok := provider.(*sdkmetric.MeterProvider)
	assert.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}
