// Package config loads database settings with koanf.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables prefixed with VISMATCH_. In variable names a double
// underscore separates sections, so VISMATCH_MATCHER__MAX_DISTANCE sets
// matcher.max_distance.
package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hupe1980/vismatch"
	"github.com/hupe1980/vismatch/blobstore"
	"github.com/hupe1980/vismatch/blobstore/minio"
	"github.com/hupe1980/vismatch/blobstore/s3"
	"github.com/hupe1980/vismatch/diagnostics"
	"github.com/hupe1980/vismatch/extractor"
	"github.com/hupe1980/vismatch/index"
	"github.com/hupe1980/vismatch/index/hct"
	"github.com/hupe1980/vismatch/matcher"
	"github.com/hupe1980/vismatch/telemetry"
	"github.com/hupe1980/vismatch/verifier"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "VISMATCH_"

// Config is the complete vismatch configuration.
type Config struct {
	Log         LogConfig         `koanf:"log"`
	Extractor   ExtractorConfig   `koanf:"extractor"`
	Matcher     MatcherConfig     `koanf:"matcher"`
	Verifier    VerifierConfig    `koanf:"verifier"`
	Index       IndexConfig       `koanf:"index"`
	Parallelism int               `koanf:"parallelism"`
	Diagnostics DiagnosticsConfig `koanf:"diagnostics"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

// ExtractorConfig mirrors extractor.Options.
type ExtractorConfig struct {
	BytesPerFeature int `koanf:"bytes_per_feature"`
	Octaves         int `koanf:"octaves"`
	FASTThreshold   int `koanf:"fast_threshold"`
	MaxFeatures     int `koanf:"max_features"`
}

// MatcherConfig mirrors matcher.Options.
type MatcherConfig struct {
	MaxDistance        int     `koanf:"max_distance"`
	Ratio              float64 `koanf:"ratio"`
	Unique             bool    `koanf:"unique"`
	MinCorrespondences int     `koanf:"min_correspondences"`
}

// VerifierConfig mirrors verifier.Options.
type VerifierConfig struct {
	Threshold     float64 `koanf:"threshold"`
	MaxIterations int     `koanf:"max_iterations"`
	Confidence    float64 `koanf:"confidence"`
	MinInliers    int     `koanf:"min_inliers"`
	Seed          uint64  `koanf:"seed"`
}

// IndexConfig picks the per-keyframe index. The remaining fields tune the
// hierarchical clustering tree and are ignored by the flat index.
type IndexConfig struct {
	Kind       string `koanf:"kind"` // flat, hct
	Branching  int    `koanf:"branching"`
	LeafSize   int    `koanf:"leaf_size"`
	Iterations int    `koanf:"iterations"`
	MaxChecks  int    `koanf:"max_checks"`
	Seed       uint64 `koanf:"seed"`
}

// DiagnosticsConfig controls refset export. Bucket and Region apply to s3;
// Endpoint, AccessKey, SecretKey and Secure apply to minio; Path applies to
// local. Rate is snapshots per second, 0 meaning unlimited.
type DiagnosticsConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Backend     string  `koanf:"backend"` // local, s3, minio
	Path        string  `koanf:"path"`
	Bucket      string  `koanf:"bucket"`
	Prefix      string  `koanf:"prefix"`
	Region      string  `koanf:"region"`
	Endpoint    string  `koanf:"endpoint"`
	AccessKey   string  `koanf:"access_key"`
	SecretKey   string  `koanf:"secret_key"`
	Secure      bool    `koanf:"secure"`
	Compression string  `koanf:"compression"` // none, lz4, zstd
	Rate        float64 `koanf:"rate"`
	Burst       int     `koanf:"burst"`
}

func setDefaults(k *koanf.Koanf) error {
	ex := extractor.DefaultOptions
	ma := matcher.DefaultOptions
	ve := verifier.DefaultOptions
	tr := hct.DefaultOptions

	defaults := map[string]any{
		"log.level":  "info",
		"log.format": "text",

		"extractor.bytes_per_feature": ex.BytesPerFeature,
		"extractor.octaves":           ex.Octaves,
		"extractor.fast_threshold":    ex.FASTThreshold,
		"extractor.max_features":      ex.MaxFeatures,

		"matcher.max_distance":        ma.MaxDistance,
		"matcher.ratio":               ma.Ratio,
		"matcher.unique":              ma.Unique,
		"matcher.min_correspondences": ma.MinCorrespondences,

		"verifier.threshold":      ve.Threshold,
		"verifier.max_iterations": ve.MaxIterations,
		"verifier.confidence":     ve.Confidence,
		"verifier.min_inliers":    ve.MinInliers,
		"verifier.seed":           ve.Seed,

		"index.kind":       index.KindHCT.String(),
		"index.branching":  tr.Branching,
		"index.leaf_size":  tr.LeafSize,
		"index.iterations": tr.Iterations,
		"index.max_checks": tr.MaxChecks,
		"index.seed":       tr.Seed,

		"parallelism": 0,

		"diagnostics.enabled":     false,
		"diagnostics.backend":     "local",
		"diagnostics.path":        "diagnostics",
		"diagnostics.prefix":      diagnostics.DefaultOptions.Prefix,
		"diagnostics.compression": diagnostics.DefaultOptions.Compression.String(),
		"diagnostics.burst":       diagnostics.DefaultOptions.Burst,
	}
	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the configuration. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := setDefaults(k); err != nil {
		return nil, err
	}

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	// 2. Load from ENV (VISMATCH_INDEX__MAX_CHECKS -> index.max_checks)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Logger builds the logger described by the log section, writing to w.
func (c *Config) Logger(w io.Writer) *vismatch.Logger {
	return telemetry.NewLogger(w, c.Log.Level, c.Log.Format)
}

// Options maps the configuration to database options. A nil logger is
// replaced by Logger(os.Stderr).
func (c *Config) Options(logger *vismatch.Logger) ([]vismatch.Option, error) {
	if logger == nil {
		logger = c.Logger(os.Stderr)
	}

	kind, err := index.ParseKind(c.Index.Kind)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	opts := []vismatch.Option{
		vismatch.WithExtractorOptions(extractor.Options{
			BytesPerFeature: c.Extractor.BytesPerFeature,
			Octaves:         c.Extractor.Octaves,
			FASTThreshold:   c.Extractor.FASTThreshold,
			MaxFeatures:     c.Extractor.MaxFeatures,
		}),
		vismatch.WithMatcherOptions(matcher.Options{
			MaxDistance:        c.Matcher.MaxDistance,
			Ratio:              c.Matcher.Ratio,
			Unique:             c.Matcher.Unique,
			MinCorrespondences: c.Matcher.MinCorrespondences,
		}),
		vismatch.WithVerifierOptions(verifier.Options{
			Threshold:     c.Verifier.Threshold,
			MaxIterations: c.Verifier.MaxIterations,
			Confidence:    c.Verifier.Confidence,
			MinInliers:    c.Verifier.MinInliers,
			Seed:          c.Verifier.Seed,
		}),
		vismatch.WithIndex(kind, func(o *hct.Options) {
			o.Branching = c.Index.Branching
			o.LeafSize = c.Index.LeafSize
			o.Iterations = c.Index.Iterations
			o.MaxChecks = c.Index.MaxChecks
			o.Seed = c.Index.Seed
		}),
		vismatch.WithLogger(logger),
	}
	if c.Parallelism > 0 {
		opts = append(opts, vismatch.WithParallelism(c.Parallelism))
	}
	return opts, nil
}

// Store opens the diagnostics blob store.
func (c *DiagnosticsConfig) Store(ctx context.Context) (blobstore.Store, error) {
	switch strings.ToLower(c.Backend) {
	case "", "local":
		return blobstore.NewLocalStore(c.Path), nil
	case "s3":
		return s3.New(ctx, c.Bucket, s3.WithRegion(c.Region))
	case "minio":
		return minio.Dial(c.Endpoint, c.AccessKey, c.SecretKey, c.Secure, c.Bucket, "")
	default:
		return nil, fmt.Errorf("config: unknown diagnostics backend %q", c.Backend)
	}
}

// Recorder builds the diagnostics recorder, or returns nil when
// diagnostics are disabled.
func (c *DiagnosticsConfig) Recorder(ctx context.Context, logger *vismatch.Logger) (*diagnostics.Recorder, error) {
	if !c.Enabled {
		return nil, nil
	}

	comp, err := diagnostics.ParseCompression(c.Compression)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	store, err := c.Store(ctx)
	if err != nil {
		return nil, err
	}

	optFns := []func(*diagnostics.Options){
		diagnostics.WithCompression(comp),
		diagnostics.WithPrefix(c.Prefix),
		diagnostics.WithRateLimit(c.Rate, c.Burst),
	}
	if logger != nil {
		optFns = append(optFns, diagnostics.WithLogger(logger.Logger))
	}
	return diagnostics.NewRecorder(store, optFns...), nil
}
