// Package verifier confirms tentative correspondences with a planar
// homography estimated by RANSAC.
//
// Each iteration fits a homography to four random correspondences and counts
// those whose reprojection error is within Threshold pixels. The best
// consensus set is refit with all of its members. The random source is
// seeded from Options.Seed and the number of correspondences only, so a given
// input always produces the same result.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/bits-and-blooms/bitset"
	"github.com/hupe1980/vismatch/geometry"
)

// ErrInvalidOptions is returned by New when Options are out of range.
var ErrInvalidOptions = errors.New("invalid verifier options")

// sampleSize is the minimal number of correspondences defining a homography.
const sampleSize = 4

// degenerateTolerance is the minimum distance, in pixels, between sample
// points and from a sample point to the line through two others.
const degenerateTolerance = 1.0

// Options configures verification.
type Options struct {
	// Threshold is the maximum reprojection error in pixels for an inlier.
	Threshold float64
	// MaxIterations bounds the number of hypotheses.
	MaxIterations int
	// Confidence is the probability of drawing at least one all-inlier sample
	// used to stop early.
	Confidence float64
	// MinInliers is the smallest consensus set accepted as a match.
	MinInliers int
	// Seed makes sampling reproducible.
	Seed uint64
}

// DefaultOptions contains the default verification settings.
var DefaultOptions = Options{
	Threshold:     3,
	MaxIterations: 1000,
	Confidence:    0.995,
	MinInliers:    8,
	Seed:          0x5eed,
}

// Result is the outcome of a verification.
type Result struct {
	// Homography maps source points to destination points.
	Homography geometry.Homography
	// Inliers lists the positions of inlier correspondences in input order.
	Inliers []int
	// Iterations is the number of hypotheses drawn.
	Iterations int
}

// Verifier runs RANSAC. It is safe for concurrent use.
type Verifier struct {
	opts Options
}

// New creates a Verifier.
func New(opts Options) (*Verifier, error) {
	if opts.Threshold <= 0 {
		return nil, fmt.Errorf("%w: threshold must be positive", ErrInvalidOptions)
	}
	if opts.MaxIterations <= 0 {
		return nil, fmt.Errorf("%w: max iterations must be positive", ErrInvalidOptions)
	}
	if opts.Confidence <= 0 || opts.Confidence >= 1 {
		return nil, fmt.Errorf("%w: confidence %v not in (0, 1)", ErrInvalidOptions, opts.Confidence)
	}
	if opts.MinInliers < sampleSize {
		return nil, fmt.Errorf("%w: min inliers must be at least %d", ErrInvalidOptions, sampleSize)
	}
	return &Verifier{opts: opts}, nil
}

// Options returns the verifier configuration.
func (v *Verifier) Options() Options { return v.opts }

// Verify estimates the homography mapping src[i] to dst[i]. ok is false when
// no model reaches MinInliers; the returned Result then still carries the
// best consensus found, if any.
func (v *Verifier) Verify(ctx context.Context, src, dst []geometry.Point) (res Result, ok bool, err error) {
	n := len(src)
	if n != len(dst) {
		return Result{}, false, fmt.Errorf("point count mismatch: %d vs %d", n, len(dst))
	}
	if n < sampleSize {
		return Result{}, false, nil
	}

	rng := rand.New(rand.NewPCG(v.opts.Seed, uint64(n)))
	thr2 := v.opts.Threshold * v.opts.Threshold

	var (
		best      geometry.Homography
		bestMask  = bitset.New(uint(n))
		bestCount int
		mask      = bitset.New(uint(n))
		sample    [sampleSize]int
		sSrc      = make([]geometry.Point, sampleSize)
		sDst      = make([]geometry.Point, sampleSize)
		bound     = v.opts.MaxIterations
		iter      int
	)

	for iter < bound {
		if iter%64 == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, false, err
			}
		}
		iter++

		draw(rng, n, sample[:])
		for i, idx := range sample {
			sSrc[i], sDst[i] = src[idx], dst[idx]
		}
		if geometry.Degenerate(sSrc, degenerateTolerance) || geometry.Degenerate(sDst, degenerateTolerance) {
			continue
		}
		h, err := geometry.Fit(sSrc, sDst)
		if err != nil {
			continue
		}

		count := consensus(h, src, dst, thr2, mask)
		if count <= bestCount {
			continue
		}
		best, bestCount = h, count
		mask.CopyFull(bestMask)
		if count == n {
			break
		}
		bound = min(bound, iterationBound(v.opts.Confidence, float64(count)/float64(n)))
	}

	if bestCount < sampleSize {
		return Result{Iterations: iter}, false, nil
	}

	// Refit on the consensus set and keep it when it does not lose support.
	cSrc := make([]geometry.Point, 0, bestCount)
	cDst := make([]geometry.Point, 0, bestCount)
	for i, e := bestMask.NextSet(0); e; i, e = bestMask.NextSet(i + 1) {
		cSrc = append(cSrc, src[i])
		cDst = append(cDst, dst[i])
	}
	if h, err := geometry.Fit(cSrc, cDst); err == nil {
		if count := consensus(h, src, dst, thr2, mask); count >= bestCount {
			best, bestCount = h, count
			mask.CopyFull(bestMask)
		}
	}

	res = Result{
		Homography: best,
		Inliers:    make([]int, 0, bestCount),
		Iterations: iter,
	}
	for i, e := bestMask.NextSet(0); e; i, e = bestMask.NextSet(i + 1) {
		res.Inliers = append(res.Inliers, int(i))
	}
	return res, bestCount >= v.opts.MinInliers, nil
}

// consensus marks in mask the correspondences h explains and returns their count.
func consensus(h geometry.Homography, src, dst []geometry.Point, thr2 float64, mask *bitset.BitSet) int {
	mask.ClearAll()
	for i := range src {
		if h.ReprojectionError(src[i], dst[i]) <= thr2 {
			mask.Set(uint(i))
		}
	}
	return int(mask.Count())
}

// draw fills sample with distinct indices in [0, n).
func draw(rng *rand.Rand, n int, sample []int) {
	for i := range sample {
		idx := rng.IntN(n)
		for slices.Contains(sample[:i], idx) {
			idx = rng.IntN(n)
		}
		sample[i] = idx
	}
}

// iterationBound returns the number of samples needed to draw an all-inlier
// sample with the given confidence when a fraction w of the data are inliers.
func iterationBound(confidence, w float64) int {
	p := math.Pow(w, sampleSize)
	if p >= 1 {
		return 1
	}
	if p <= 0 {
		return math.MaxInt
	}
	k := math.Log(1-confidence) / math.Log(1-p)
	if k >= math.MaxInt32 {
		return math.MaxInt32
	}
	return max(1, int(math.Ceil(k)))
}
