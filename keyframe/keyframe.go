// Package keyframe stores the features of one image together with a search
// index over its descriptors.
package keyframe

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/vismatch/distance"
	"github.com/hupe1980/vismatch/index"
	"github.com/hupe1980/vismatch/index/flat"
	"github.com/hupe1980/vismatch/model"
)

var (
	// ErrIndexNotBuilt is returned by Search when the index is missing or stale.
	ErrIndexNotBuilt = errors.New("keyframe index not built")

	// ErrMisaligned is returned when descriptors and points disagree in count.
	ErrMisaligned = errors.New("descriptors not aligned with feature points")

	// ErrInvalidDimensions is returned for non-positive image dimensions.
	ErrInvalidDimensions = errors.New("invalid keyframe dimensions")
)

// Keyframe holds an image's size, feature points, descriptors and index.
//
// A Keyframe is not safe for concurrent mutation. Once BuildIndex has returned
// and no setter is called, concurrent reads and searches are safe.
type Keyframe struct {
	width, height   int
	bytesPerFeature int
	points          []model.FeaturePoint
	descriptors     []byte

	newIndex index.Factory
	idx      index.Index
}

// New returns an empty keyframe whose index is created by factory.
// A nil factory selects the exact flat index.
func New(factory index.Factory) *Keyframe {
	if factory == nil {
		factory = flat.NewIndex
	}
	return &Keyframe{newIndex: factory}
}

// SetDimensions records the image size.
func (k *Keyframe) SetDimensions(width, height int) {
	k.width, k.height = width, height
}

// SetPoints replaces the feature points, taking ownership of the slice.
// The index is invalidated.
func (k *Keyframe) SetPoints(points []model.FeaturePoint) {
	k.points = points
	k.idx = nil
}

// SetDescriptors replaces the descriptor buffer, taking ownership of it.
// The index is invalidated.
func (k *Keyframe) SetDescriptors(descriptors []byte, bytesPerFeature int) {
	k.descriptors = descriptors
	k.bytesPerFeature = bytesPerFeature
	k.idx = nil
}

// Validate checks the descriptor alignment invariant and the dimensions.
func (k *Keyframe) Validate() error {
	if k.width <= 0 || k.height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, k.width, k.height)
	}
	if len(k.points) == 0 && len(k.descriptors) == 0 {
		return nil
	}
	if err := distance.Validate(k.descriptors, k.bytesPerFeature); err != nil {
		return fmt.Errorf("%w: %v", ErrMisaligned, err)
	}
	if n := len(k.descriptors) / k.bytesPerFeature; n != len(k.points) {
		return fmt.Errorf("%w: %d points, %d descriptors", ErrMisaligned, len(k.points), n)
	}
	return nil
}

// BuildIndex validates the keyframe and indexes its descriptors.
func (k *Keyframe) BuildIndex(ctx context.Context) error {
	if err := k.Validate(); err != nil {
		return err
	}
	idx := k.newIndex()
	bpf := k.bytesPerFeature
	if bpf <= 0 {
		// No features: an empty index still answers searches.
		bpf = 1
	}
	if err := idx.Build(ctx, k.descriptors, bpf); err != nil {
		return err
	}
	k.idx = idx
	return nil
}

// IsIndexed reports whether the index reflects the current content.
func (k *Keyframe) IsIndexed() bool { return k.idx != nil }

// Search returns up to n nearest indexed descriptors to query.
func (k *Keyframe) Search(query []byte, n int) ([]index.Neighbor, error) {
	if k.idx == nil {
		return nil, ErrIndexNotBuilt
	}
	return k.idx.Search(query, n)
}

// Width returns the image width in pixels.
func (k *Keyframe) Width() int { return k.width }

// Height returns the image height in pixels.
func (k *Keyframe) Height() int { return k.height }

// BytesPerFeature returns the descriptor length in bytes.
func (k *Keyframe) BytesPerFeature() int { return k.bytesPerFeature }

// Len returns the number of feature points.
func (k *Keyframe) Len() int { return len(k.points) }

// Points returns the feature points. The slice must not be modified.
func (k *Keyframe) Points() []model.FeaturePoint { return k.points }

// Descriptors returns the descriptor buffer. The slice must not be modified.
func (k *Keyframe) Descriptors() []byte { return k.descriptors }

// Descriptor returns the descriptor of point i.
func (k *Keyframe) Descriptor(i int) []byte {
	return k.descriptors[i*k.bytesPerFeature : (i+1)*k.bytesPerFeature]
}

// Refset returns a snapshot of the keyframe labelled with id. The slices are
// shared with the keyframe.
func (k *Keyframe) Refset(id int) model.Refset {
	return model.Refset{
		ImageID:         id,
		Width:           k.width,
		Height:          k.height,
		BytesPerFeature: k.bytesPerFeature,
		Points:          k.points,
		Descriptors:     k.descriptors,
	}
}
