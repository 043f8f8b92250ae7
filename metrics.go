package simvault

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordInsert is called after each insert operation.
	// duration is the total time taken, err is nil if successful.
	RecordInsert(duration time.Duration, err error)

	// RecordQuery is called after each similarity query.
	// k is the number of matches requested, duration is the time taken,
	// err is nil if successful.
	RecordQuery(k int, duration time.Duration, err error)

	// RecordMigration is called after a metric migration.
	// count is the number of vectors rewritten.
	RecordMigration(count int, duration time.Duration, err error)

	// RecordAnchor is called after each anchoring attempt.
	RecordAnchor(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)         {}
func (NoopMetricsCollector) RecordQuery(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordMigration(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordAnchor(time.Duration, error)         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount      atomic.Int64
	InsertErrors     atomic.Int64
	InsertTotalNanos atomic.Int64
	QueryCount       atomic.Int64
	QueryErrors      atomic.Int64
	QueryTotalNanos  atomic.Int64
	MigrationCount   atomic.Int64
	MigrationErrors  atomic.Int64
	MigratedVectors  atomic.Int64
	AnchorCount      atomic.Int64
	AnchorErrors     atomic.Int64
	AnchorTotalNanos atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(k int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordMigration implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMigration(count int, duration time.Duration, err error) {
	b.MigrationCount.Add(1)
	b.MigratedVectors.Add(int64(count))
	if err != nil {
		b.MigrationErrors.Add(1)
	}
}

// RecordAnchor implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAnchor(duration time.Duration, err error) {
	b.AnchorCount.Add(1)
	b.AnchorTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AnchorErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:     b.InsertCount.Load(),
		InsertErrors:    b.InsertErrors.Load(),
		InsertAvgNanos:  avgNanos(b.InsertTotalNanos.Load(), b.InsertCount.Load()),
		QueryCount:      b.QueryCount.Load(),
		QueryErrors:     b.QueryErrors.Load(),
		QueryAvgNanos:   avgNanos(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		MigrationCount:  b.MigrationCount.Load(),
		MigrationErrors: b.MigrationErrors.Load(),
		MigratedVectors: b.MigratedVectors.Load(),
		AnchorCount:     b.AnchorCount.Load(),
		AnchorErrors:    b.AnchorErrors.Load(),
		AnchorAvgNanos:  avgNanos(b.AnchorTotalNanos.Load(), b.AnchorCount.Load()),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount     int64
	InsertErrors    int64
	InsertAvgNanos  int64
	QueryCount      int64
	QueryErrors     int64
	QueryAvgNanos   int64
	MigrationCount  int64
	MigrationErrors int64
	MigratedVectors int64
	AnchorCount     int64
	AnchorErrors    int64
	AnchorAvgNanos  int64
}
