package vismatch

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/vismatch/extractor"
	"github.com/hupe1980/vismatch/index"
	"github.com/hupe1980/vismatch/index/hct"
	"github.com/hupe1980/vismatch/matcher"
	"github.com/hupe1980/vismatch/verifier"
)

// CandidateFilter narrows the enrolled ids evaluated by a query. It receives
// the enrolled id set and returns the ids to evaluate; ids it returns that
// are not enrolled are ignored. A filter must not modify enrolled.
type CandidateFilter func(ctx context.Context, enrolled *roaring.Bitmap) *roaring.Bitmap

type options struct {
	extractor        extractor.Options
	matcher          matcher.Options
	verifier         verifier.Options
	indexKind        index.Kind
	treeOptions      []func(*hct.Options)
	parallelism      int
	metricsCollector MetricsCollector
	logger           *Logger
	observer         EnrollmentObserver
	candidateFilter  CandidateFilter
}

func defaultOptions() options {
	return options{
		extractor:        extractor.DefaultOptions,
		matcher:          matcher.DefaultOptions,
		verifier:         verifier.DefaultOptions,
		indexKind:        index.KindHCT,
		parallelism:      runtime.GOMAXPROCS(0),
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		observer:         NoopObserver{},
	}
}

// Option configures a Database.
type Option func(*options)

// WithExtractorOptions replaces the feature extraction settings.
func WithExtractorOptions(opts extractor.Options) Option {
	return func(o *options) {
		o.extractor = opts
	}
}

// WithBytesPerFeature sets the descriptor length in bytes (default 96, max
// extractor.MaxBytesPerFeature). Every enrolled keyframe uses this length.
func WithBytesPerFeature(n int) Option {
	return func(o *options) {
		o.extractor.BytesPerFeature = n
	}
}

// WithMaxFeatures caps the keypoints extracted per image.
func WithMaxFeatures(n int) Option {
	return func(o *options) {
		o.extractor.MaxFeatures = n
	}
}

// WithMatcherOptions replaces the correspondence settings.
func WithMatcherOptions(opts matcher.Options) Option {
	return func(o *options) {
		o.matcher = opts
	}
}

// WithVerifierOptions replaces the geometric verification settings.
func WithVerifierOptions(opts verifier.Options) Option {
	return func(o *options) {
		o.verifier = opts
	}
}

// WithMinInliers sets the inlier count a candidate needs to be accepted.
func WithMinInliers(n int) Option {
	return func(o *options) {
		o.verifier.MinInliers = n
	}
}

// WithIndex selects the per-keyframe descriptor index. Tree options apply
// only to index.KindHCT.
//
// Example:
//
//	db, _ := vismatch.New(vismatch.WithIndex(index.KindHCT, func(o *hct.Options) {
//	    o.MaxChecks = 512
//	}))
func WithIndex(kind index.Kind, treeOptions ...func(*hct.Options)) Option {
	return func(o *options) {
		o.indexKind = kind
		o.treeOptions = treeOptions
	}
}

// WithParallelism bounds the candidates evaluated concurrently per query.
// Values below 1 mean sequential evaluation.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = max(1, n)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &vismatch.BasicMetricsCollector{}
//	db, _ := vismatch.New(vismatch.WithMetricsCollector(metrics))
//	// ... use db ...
//	stats := metrics.GetStats()
//	fmt.Printf("Queries: %d, matches: %d\n", stats.QueryCount, stats.QueryMatches)
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
//
// Example with JSON logging:
//
//	logger := vismatch.NewJSONLogger(slog.LevelInfo)
//	db, _ := vismatch.New(vismatch.WithLogger(logger))
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

// WithEnrollmentObserver registers an observer notified after each successful
// enrollment. Pass nil to remove it.
func WithEnrollmentObserver(obs EnrollmentObserver) Option {
	return func(o *options) {
		if obs == nil {
			obs = NoopObserver{}
		}
		o.observer = obs
	}
}

// WithCandidateFilter installs a coarse pre-filter over the enrolled ids.
func WithCandidateFilter(f CandidateFilter) Option {
	return func(o *options) {
		o.candidateFilter = f
	}
}
