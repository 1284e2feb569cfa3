// This file implements the fluent builder API for creating and configuring
// Database instances. Builders are immutable - each method returns a new
// builder with the updated configuration.

package vismatch

import (
	"slices"

	"github.com/hupe1980/vismatch/index"
	"github.com/hupe1980/vismatch/index/hct"
	"github.com/hupe1980/vismatch/matcher"
	"github.com/hupe1980/vismatch/verifier"
)

// Builder is an immutable fluent builder for Database instances.
//
// Example:
//
//	db, err := vismatch.Tree().
//	    BytesPerFeature(64).
//	    MaxChecks(512).
//	    MinInliers(12).
//	    Parallelism(4).
//	    Build()
type Builder struct {
	kind    index.Kind
	options []Option
	tree    []func(*hct.Options)
	match   []func(*matcher.Options)
	verify  []func(*verifier.Options)
}

// Flat creates a builder for a Database whose keyframes use exact linear-scan
// descriptor search.
func Flat() Builder {
	return Builder{kind: index.KindFlat}
}

// Tree creates a builder for a Database whose keyframes use hierarchical
// clustering trees.
func Tree() Builder {
	return Builder{kind: index.KindHCT}
}

func (b Builder) with(o Option) Builder {
	b.options = append(slices.Clip(b.options), o)
	return b
}

func (b Builder) withTree(fn func(*hct.Options)) Builder {
	b.tree = append(slices.Clip(b.tree), fn)
	return b
}

func (b Builder) withMatch(fn func(*matcher.Options)) Builder {
	b.match = append(slices.Clip(b.match), fn)
	return b
}

func (b Builder) withVerify(fn func(*verifier.Options)) Builder {
	b.verify = append(slices.Clip(b.verify), fn)
	return b
}

// BytesPerFeature sets the descriptor length in bytes.
func (b Builder) BytesPerFeature(n int) Builder { return b.with(WithBytesPerFeature(n)) }

// MaxFeatures caps the keypoints extracted per image.
func (b Builder) MaxFeatures(n int) Builder { return b.with(WithMaxFeatures(n)) }

// MaxDistance sets the largest accepted descriptor distance in bits.
func (b Builder) MaxDistance(d int) Builder {
	return b.withMatch(func(o *matcher.Options) { o.MaxDistance = d })
}

// Ratio sets the nearest/second-nearest distance ratio bound.
func (b Builder) Ratio(r float64) Builder {
	return b.withMatch(func(o *matcher.Options) { o.Ratio = r })
}

// Threshold sets the inlier reprojection tolerance in pixels.
func (b Builder) Threshold(px float64) Builder {
	return b.withVerify(func(o *verifier.Options) { o.Threshold = px })
}

// MaxIterations sets the RANSAC iteration budget.
func (b Builder) MaxIterations(n int) Builder {
	return b.withVerify(func(o *verifier.Options) { o.MaxIterations = n })
}

// MinInliers sets the inlier count needed to accept a candidate.
func (b Builder) MinInliers(n int) Builder {
	return b.withVerify(func(o *verifier.Options) { o.MinInliers = n })
}

// Seed sets the seed of verification sampling and tree construction.
func (b Builder) Seed(seed uint64) Builder {
	return b.withVerify(func(o *verifier.Options) { o.Seed = seed }).
		withTree(func(o *hct.Options) { o.Seed = seed })
}

// MaxChecks bounds the leaf points compared per tree search.
// It has no effect on Flat builders.
func (b Builder) MaxChecks(n int) Builder {
	return b.withTree(func(o *hct.Options) { o.MaxChecks = n })
}

// Branching sets the clusters per tree node.
// It has no effect on Flat builders.
func (b Builder) Branching(n int) Builder {
	return b.withTree(func(o *hct.Options) { o.Branching = n })
}

// LeafSize sets the largest tree leaf.
// It has no effect on Flat builders.
func (b Builder) LeafSize(n int) Builder {
	return b.withTree(func(o *hct.Options) { o.LeafSize = n })
}

// Parallelism bounds the candidates evaluated concurrently per query.
func (b Builder) Parallelism(n int) Builder { return b.with(WithParallelism(n)) }

// Logger sets the logger.
func (b Builder) Logger(l *Logger) Builder { return b.with(WithLogger(l)) }

// Metrics sets the metrics collector.
func (b Builder) Metrics(mc MetricsCollector) Builder { return b.with(WithMetricsCollector(mc)) }

// Observer sets the enrollment observer.
func (b Builder) Observer(obs EnrollmentObserver) Builder { return b.with(WithEnrollmentObserver(obs)) }

// Options appends raw options, applied after the builder's own settings.
func (b Builder) Options(opts ...Option) Builder {
	b.options = append(slices.Clip(b.options), opts...)
	return b
}

// Build creates the Database.
func (b Builder) Build() (*Database, error) {
	mo := matcher.DefaultOptions
	for _, fn := range b.match {
		fn(&mo)
	}
	vo := verifier.DefaultOptions
	for _, fn := range b.verify {
		fn(&vo)
	}

	opts := []Option{
		WithIndex(b.kind, b.tree...),
		WithMatcherOptions(mo),
		WithVerifierOptions(vo),
	}
	return New(append(opts, b.options...)...)
}
