// Package matcher pairs query descriptors with their nearest neighbours in an
// enrolled keyframe.
//
// A query descriptor is paired with its nearest target when the distance is
// within MaxDistance and the nearest is clearly better than the second
// nearest (d1 < Ratio·d2). With Unique set, a target keeps only its best
// query descriptor.
package matcher

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/vismatch/index"
	"github.com/hupe1980/vismatch/model"
)

// ErrInvalidOptions is returned by New when Options are out of range.
var ErrInvalidOptions = errors.New("invalid matcher options")

// Searcher finds nearest descriptors; *keyframe.Keyframe implements it.
type Searcher interface {
	Search(query []byte, k int) ([]index.Neighbor, error)
}

// Options configures matching.
type Options struct {
	// MaxDistance is the largest accepted Hamming distance in bits.
	MaxDistance int
	// Ratio is the nearest/second-nearest distance ratio bound, in (0, 1].
	Ratio float64
	// Unique keeps at most one correspondence per target descriptor.
	Unique bool
	// MinCorrespondences is the fewest tentative correspondences worth verifying.
	MinCorrespondences int
}

// DefaultOptions contains the default matching settings.
var DefaultOptions = Options{
	MaxDistance:        128,
	Ratio:              0.8,
	Unique:             true,
	MinCorrespondences: 4,
}

// Matcher produces tentative correspondences. It is safe for concurrent use.
type Matcher struct {
	opts Options
}

// New creates a Matcher.
func New(opts Options) (*Matcher, error) {
	if opts.MaxDistance < 0 {
		return nil, fmt.Errorf("%w: max distance must not be negative", ErrInvalidOptions)
	}
	if opts.Ratio <= 0 || opts.Ratio > 1 {
		return nil, fmt.Errorf("%w: ratio %v not in (0, 1]", ErrInvalidOptions, opts.Ratio)
	}
	if opts.MinCorrespondences < 4 {
		return nil, fmt.Errorf("%w: min correspondences must be at least 4", ErrInvalidOptions)
	}
	return &Matcher{opts: opts}, nil
}

// Options returns the matcher configuration.
func (m *Matcher) Options() Options { return m.opts }

// Match returns the tentative correspondences between the query descriptors
// (len(queryDescriptors)/bytesPerFeature of them) and target, ordered by
// query index.
func (m *Matcher) Match(queryDescriptors []byte, bytesPerFeature int, target Searcher) ([]model.Correspondence, error) {
	if bytesPerFeature <= 0 || len(queryDescriptors)%bytesPerFeature != 0 {
		return nil, fmt.Errorf("invalid query descriptors: %d bytes, %d per feature", len(queryDescriptors), bytesPerFeature)
	}
	n := len(queryDescriptors) / bytesPerFeature

	corrs := make([]model.Correspondence, 0, n/4)
	for q := 0; q < n; q++ {
		nn, err := target.Search(queryDescriptors[q*bytesPerFeature:(q+1)*bytesPerFeature], 2)
		if err != nil {
			return nil, err
		}
		if len(nn) == 0 {
			continue
		}
		d1 := nn[0].Distance
		if d1 > m.opts.MaxDistance {
			continue
		}
		if len(nn) > 1 && !(float64(d1) < m.opts.Ratio*float64(nn[1].Distance)) {
			continue
		}
		corrs = append(corrs, model.Correspondence{QueryIndex: q, TargetIndex: nn[0].Index, Distance: d1})
	}

	if m.opts.Unique {
		corrs = unique(corrs)
	}
	return corrs, nil
}

// Enough reports whether corrs warrants geometric verification.
func (m *Matcher) Enough(corrs []model.Correspondence) bool {
	return len(corrs) >= m.opts.MinCorrespondences
}

// unique keeps, per target, the correspondence with the smallest distance;
// ties keep the lower query index. Input order is preserved.
func unique(corrs []model.Correspondence) []model.Correspondence {
	best := make(map[int]int, len(corrs)) // target -> position in corrs
	for i, c := range corrs {
		j, seen := best[c.TargetIndex]
		if !seen || c.Distance < corrs[j].Distance {
			best[c.TargetIndex] = i
		}
	}
	if len(best) == len(corrs) {
		return corrs
	}
	return slices.DeleteFunc(slices.Clone(corrs), func(c model.Correspondence) bool {
		return corrs[best[c.TargetIndex]].QueryIndex != c.QueryIndex
	})
}
