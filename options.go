package simvault

import (
	"log/slog"

	"github.com/simvault/simvault/codec"
	"github.com/simvault/simvault/index"
	"github.com/simvault/simvault/internal/fs"
)

type options struct {
	metric           index.Metric
	codec            codec.Codec
	fs               fs.FileSystem
	metricsCollector MetricsCollector
	logger           *Logger
	overfetchFloor   int
}

// Option configures vault constructor/open behavior.
type Option func(*options)

// WithMetric configures the ranking metric for a newly created vault.
// An existing vault keeps its persisted metric; use Vault.MigrateMetric to
// switch an L2 vault to cosine.
func WithMetric(m index.Metric) Option {
	return func(o *options) {
		o.metric = m
	}
}

// WithCodec configures the codec used for the metadata ledger document.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithFS configures the file system used for persistence. Primarily used in
// tests to inject faults.
func WithFS(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys == nil {
			fsys = fs.Default
		}
		o.fs = fsys
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithOverfetchFloor configures the minimum number of candidates fetched
// before deduplication, regardless of the requested k.
func WithOverfetchFloor(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.overfetchFloor = n
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metric:           index.MetricSquaredL2,
		codec:            codec.Default,
		fs:               fs.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		overfetchFloor:   5,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
