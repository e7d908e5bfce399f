package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecorderCounts(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	r, err := NewRecorder(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)
	ctx := context.Background()

	r.RecordSession(ctx, "pro", "processed", 150*time.Millisecond)
	r.RecordSession(ctx, "starter", "failed", 10*time.Millisecond)
	r.RecordJudgements(ctx, map[string]int{"blocker": 2, "review": 5, "info": 1})
	r.RecordFaults(ctx, 3)
	r.RecordFaults(ctx, 0)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, got["payrollrisk.sessions.processed"]))
	assert.Equal(t, int64(8), sumOf(t, got["payrollrisk.judgements"]))
	assert.Equal(t, int64(3), sumOf(t, got["payrollrisk.rule.faults"]))

	hist, ok := got["payrollrisk.evaluation.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	ctx := context.Background()

	r.RecordSession(ctx, "pro", "processed", time.Second)
	r.RecordJudgements(ctx, map[string]int{"review": 1})
	r.RecordFaults(ctx, 1)
	assert.NoError(t, r.Shutdown(ctx))
}

func TestSetupDisabled(t *testing.T) {
	r, err := Setup(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.NoError(t, r.Shutdown(context.Background()))
}
