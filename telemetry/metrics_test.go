package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
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

func sumWhere(t *testing.T, agg metricdata.Aggregation, kv ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", agg)

	var total int64
	for _, dp := range sum.DataPoints {
		match := true
		for _, want := range kv {
			got, ok := dp.Attributes.Value(want.Key)
			if !ok || got.Emit() != want.Value.Emit() {
				match = false
				break
			}
		}
		if match {
			total += dp.Value
		}
	}
	return total
}

func TestCollector(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	c, err := NewCollector(provider.Meter("test"))
	require.NoError(t, err)

	c.RecordEnroll(120, 5*time.Millisecond, nil)
	c.RecordEnroll(80, time.Millisecond, nil)
	c.RecordEnroll(0, time.Millisecond, errors.New("bad image"))
	c.RecordQuery(2, true, 10*time.Millisecond, nil)
	c.RecordQuery(2, false, 10*time.Millisecond, nil)
	c.RecordQuery(0, false, time.Millisecond, errors.New("cancelled"))
	c.RecordErase(true)
	c.RecordErase(false)
	c.RecordErase(false)

	data := collect(t, reader)

	assert.Equal(t, int64(2), sumWhere(t, data["vismatch.enroll.total"], attribute.String("outcome", "ok")))
	assert.Equal(t, int64(1), sumWhere(t, data["vismatch.enroll.total"], attribute.String("outcome", "error")))
	assert.Equal(t, int64(200), sumWhere(t, data["vismatch.enroll.points"]))

	assert.Equal(t, int64(3), sumWhere(t, data["vismatch.query.total"]))
	assert.Equal(t, int64(1), sumWhere(t, data["vismatch.query.total"], attribute.Bool("found", true)))
	assert.Equal(t, int64(1), sumWhere(t, data["vismatch.query.total"], attribute.String("outcome", "error")))

	assert.Equal(t, int64(1), sumWhere(t, data["vismatch.erase.total"], attribute.Bool("existed", true)))
	assert.Equal(t, int64(2), sumWhere(t, data["vismatch.erase.total"], attribute.Bool("existed", false)))

	hist, ok := data["vismatch.query.candidates"].(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(3), hist.DataPoints[0].Count)
	assert.Equal(t, int64(4), hist.DataPoints[0].Sum)

	dur, ok := data["vismatch.enroll.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range dur.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestNewCollector_GlobalMeter(t *testing.T) {
	c, err := NewCollector(nil)
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		c.RecordQuery(1, true, time.Millisecond, nil)
	})
}
