package telemetry

import (
	"context"
	"time"

	"github.com/hupe1980/vismatch"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ScopeName is the instrumentation scope used when no meter is supplied.
const ScopeName = "github.com/hupe1980/vismatch"

// Collector records database operations on OpenTelemetry instruments.
type Collector struct {
	enrolls        metric.Int64Counter
	enrollPoints   metric.Int64Counter
	enrollDuration metric.Float64Histogram
	queries        metric.Int64Counter
	candidates     metric.Int64Histogram
	queryDuration  metric.Float64Histogram
	erases         metric.Int64Counter
}

var _ vismatch.MetricsCollector = (*Collector)(nil)

// NewCollector creates the instruments on meter. A nil meter uses the
// global meter provider.
func NewCollector(meter metric.Meter) (*Collector, error) {
	if meter == nil {
		meter = otel.Meter(ScopeName)
	}

	var (
		c   Collector
		err error
	)

	if c.enrolls, err = meter.Int64Counter(
		"vismatch.enroll.total",
		metric.WithDescription("Enrollments by outcome"),
	); err != nil {
		return nil, err
	}
	if c.enrollPoints, err = meter.Int64Counter(
		"vismatch.enroll.points",
		metric.WithDescription("Feature points enrolled"),
	); err != nil {
		return nil, err
	}
	if c.enrollDuration, err = meter.Float64Histogram(
		"vismatch.enroll.duration",
		metric.WithDescription("Enrollment latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if c.queries, err = meter.Int64Counter(
		"vismatch.query.total",
		metric.WithDescription("Queries by outcome"),
	); err != nil {
		return nil, err
	}
	if c.candidates, err = meter.Int64Histogram(
		"vismatch.query.candidates",
		metric.WithDescription("Enrolled keyframes evaluated per query"),
	); err != nil {
		return nil, err
	}
	if c.queryDuration, err = meter.Float64Histogram(
		"vismatch.query.duration",
		metric.WithDescription("Query latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if c.erases, err = meter.Int64Counter(
		"vismatch.erase.total",
		metric.WithDescription("Erase calls by whether the id existed"),
	); err != nil {
		return nil, err
	}

	return &c, nil
}

func outcome(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("outcome", "error")
	}
	return attribute.String("outcome", "ok")
}

// RecordEnroll implements vismatch.MetricsCollector.
func (c *Collector) RecordEnroll(points int, duration time.Duration, err error) {
	ctx := context.Background()
	attrs := metric.WithAttributes(outcome(err))

	c.enrolls.Add(ctx, 1, attrs)
	c.enrollDuration.Record(ctx, duration.Seconds(), attrs)
	if err == nil {
		c.enrollPoints.Add(ctx, int64(points))
	}
}

// RecordQuery implements vismatch.MetricsCollector.
func (c *Collector) RecordQuery(candidates int, found bool, duration time.Duration, err error) {
	ctx := context.Background()
	attrs := metric.WithAttributes(outcome(err), attribute.Bool("found", found))

	c.queries.Add(ctx, 1, attrs)
	c.queryDuration.Record(ctx, duration.Seconds(), attrs)
	c.candidates.Record(ctx, int64(candidates))
}

// RecordErase implements vismatch.MetricsCollector.
func (c *Collector) RecordErase(existed bool) {
	c.erases.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("existed", existed)))
}
