package vismatch

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see package
// telemetry for an OpenTelemetry implementation.
type MetricsCollector interface {
	// RecordEnroll is called after each AddImage or AddKeyframe.
	// points is the number of enrolled feature points, err is nil if successful.
	RecordEnroll(points int, duration time.Duration, err error)

	// RecordQuery is called after each Query. candidates is the number of
	// enrolled keyframes evaluated and found whether one was accepted.
	RecordQuery(candidates int, found bool, duration time.Duration, err error)

	// RecordErase is called after each Erase.
	RecordErase(existed bool)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordEnroll(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordQuery(int, bool, time.Duration, error) {}
func (NoopMetricsCollector) RecordErase(bool)                            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	EnrollCount      atomic.Int64
	EnrollErrors     atomic.Int64
	EnrollPoints     atomic.Int64
	EnrollTotalNanos atomic.Int64
	QueryCount       atomic.Int64
	QueryErrors      atomic.Int64
	QueryMatches     atomic.Int64
	QueryCandidates  atomic.Int64
	QueryTotalNanos  atomic.Int64
	EraseCount       atomic.Int64
	EraseMisses      atomic.Int64
}

// RecordEnroll implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEnroll(points int, duration time.Duration, err error) {
	b.EnrollCount.Add(1)
	b.EnrollTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.EnrollErrors.Add(1)
		return
	}
	b.EnrollPoints.Add(int64(points))
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(candidates int, found bool, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	b.QueryCandidates.Add(int64(candidates))
	if err != nil {
		b.QueryErrors.Add(1)
	}
	if found {
		b.QueryMatches.Add(1)
	}
}

// RecordErase implements MetricsCollector.
func (b *BasicMetricsCollector) RecordErase(existed bool) {
	b.EraseCount.Add(1)
	if !existed {
		b.EraseMisses.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		EnrollCount:    b.EnrollCount.Load(),
		EnrollErrors:   b.EnrollErrors.Load(),
		EnrollPoints:   b.EnrollPoints.Load(),
		EnrollAvgNanos: avg(b.EnrollTotalNanos.Load(), b.EnrollCount.Load()),
		QueryCount:     b.QueryCount.Load(),
		QueryErrors:    b.QueryErrors.Load(),
		QueryMatches:   b.QueryMatches.Load(),
		QueryAvgNanos:  avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		EraseCount:     b.EraseCount.Load(),
		EraseMisses:    b.EraseMisses.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	EnrollCount    int64
	EnrollErrors   int64
	EnrollPoints   int64
	EnrollAvgNanos int64
	QueryCount     int64
	QueryErrors    int64
	QueryMatches   int64
	QueryAvgNanos  int64
	EraseCount     int64
	EraseMisses    int64
}
