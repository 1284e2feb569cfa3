package main

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/hupe1980/vismatch"
	"github.com/hupe1980/vismatch/config"
	"github.com/hupe1980/vismatch/telemetry"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type enrollment struct {
	ID     int    `json:"id"`
	Path   string `json:"path"`
	Points int    `json:"points"`
}

type candidate struct {
	ID        int  `json:"id"`
	Tentative int  `json:"tentative"`
	Verified  bool `json:"verified"`
	Inliers   int  `json:"inliers"`
	Accepted  bool `json:"accepted"`
}

type queryReport struct {
	Enrolled    []enrollment `json:"enrolled"`
	Query       string       `json:"query"`
	QueryPoints int          `json:"queryPoints"`
	Found       bool         `json:"found"`
	MatchedID   int          `json:"matchedId"`
	Inliers     int          `json:"inliers"`
	Tentative   int          `json:"tentative"`
	Homography  []float64    `json:"homography,omitempty"`
	Candidates  []candidate  `json:"candidates"`
}

type session struct {
	db       *vismatch.Database
	shutdown func(context.Context) error
}

// open builds a database from the configuration layers and the CLI flags.
func open(ctx context.Context, g globalFlags, stderr io.Writer) (*session, error) {
	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return nil, err
	}
	if g.DiagDir != "" {
		cfg.Diagnostics.Enabled = true
		cfg.Diagnostics.Backend = "local"
		cfg.Diagnostics.Path = g.DiagDir
	}

	logger := cfg.Logger(stderr)
	opts, err := cfg.Options(logger)
	if err != nil {
		return nil, err
	}

	rec, err := cfg.Diagnostics.Recorder(ctx, logger)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		opts = append(opts, vismatch.WithEnrollmentObserver(rec))
	}

	s := &session{shutdown: func(context.Context) error { return nil }}

	if g.Metrics {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(stderr))
		if err != nil {
			return nil, err
		}
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
		mc, err := telemetry.NewCollector(provider.Meter(telemetry.ScopeName))
		if err != nil {
			_ = provider.Shutdown(ctx)
			return nil, err
		}
		opts = append(opts, vismatch.WithMetricsCollector(mc))
		s.shutdown = provider.Shutdown
	}

	s.db, err = vismatch.New(opts...)
	if err != nil {
		_ = s.shutdown(ctx)
		return nil, err
	}
	return s, nil
}

func enrollAndQuery(ctx context.Context, g globalFlags, paths []string, stdout, stderr io.Writer) (err error) {
	s, err := open(ctx, g, stderr)
	if err != nil {
		return err
	}
	defer func() {
		if serr := s.shutdown(context.WithoutCancel(ctx)); err == nil {
			err = serr
		}
	}()

	refs, queryPath := paths[:len(paths)-1], paths[len(paths)-1]

	report := queryReport{Query: queryPath, MatchedID: vismatch.NoMatch}
	for id, path := range refs {
		img, err := loadImage(path)
		if err != nil {
			return err
		}
		if err := s.db.AddImage(ctx, img.Pixels, img.Width, img.Height, id); err != nil {
			return fmt.Errorf("enroll %s: %w", path, err)
		}
		points, err := s.db.FeaturePoints(id)
		if err != nil {
			return err
		}
		report.Enrolled = append(report.Enrolled, enrollment{ID: id, Path: path, Points: len(points)})
	}

	img, err := loadImage(queryPath)
	if err != nil {
		return err
	}
	res, err := s.db.Query(ctx, img.Pixels, img.Width, img.Height)
	if err != nil {
		return fmt.Errorf("query %s: %w", queryPath, err)
	}

	report.QueryPoints = len(res.QueryPoints())
	report.Found = res.Found()
	report.MatchedID = res.MatchedID()
	report.Inliers = len(res.Inliers())
	report.Tentative = res.Tentative()
	if h := res.Geometry(); h != nil {
		report.Homography = h[:]
	}
	for _, c := range res.Candidates() {
		report.Candidates = append(report.Candidates, candidate{
			ID:        c.ID,
			Tentative: c.Tentative,
			Verified:  c.Verified,
			Inliers:   c.Inliers,
			Accepted:  c.Accepted,
		})
	}

	if g.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	for _, e := range report.Enrolled {
		fmt.Fprintf(stdout, "enrolled %d %s (%d points)\n", e.ID, e.Path, e.Points)
	}
	if !report.Found {
		fmt.Fprintf(stdout, "query %s: no match (%d points)\n", queryPath, report.QueryPoints)
		return nil
	}
	fmt.Fprintf(stdout, "query %s: matched %d with %d/%d inliers\n",
		queryPath, report.MatchedID, report.Inliers, report.Tentative)
	fmt.Fprintf(stdout, "homography %s\n", res.Geometry())
	return nil
}

func features(ctx context.Context, g globalFlags, path string, stdout, stderr io.Writer) (err error) {
	s, err := open(ctx, g, stderr)
	if err != nil {
		return err
	}
	defer func() {
		if serr := s.shutdown(context.WithoutCancel(ctx)); err == nil {
			err = serr
		}
	}()

	img, err := loadImage(path)
	if err != nil {
		return err
	}
	points, descs, err := s.db.ComputeFeatures(ctx, img.Pixels, img.Width, img.Height)
	if err != nil {
		return err
	}

	if g.JSON {
		return json.NewEncoder(stdout).Encode(map[string]any{
			"path":            path,
			"width":           img.Width,
			"height":          img.Height,
			"points":          len(points),
			"bytesPerFeature": s.db.BytesPerFeature(),
			"descriptorBytes": len(descs),
		})
	}
	fmt.Fprintf(stdout, "%s: %dx%d, %d points, %d bytes per feature\n",
		path, img.Width, img.Height, len(points), s.db.BytesPerFeature())
	return nil
}
