package vismatch

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vismatch/extractor"
	"github.com/hupe1980/vismatch/index"
	"github.com/hupe1980/vismatch/keyframe"
)

var (
	// ErrInvalidImage is returned for nil or short pixel buffers and
	// non-positive dimensions.
	ErrInvalidImage = errors.New("invalid image")

	// ErrDuplicateID is returned when enrolling an id that is already enrolled.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrNotFound is returned by accessors for ids that are not enrolled.
	ErrNotFound = errors.New("not found")

	// ErrIndexNotBuilt is returned when searching a keyframe without an index.
	ErrIndexNotBuilt = errors.New("index not built")

	// ErrInvalidID is returned for ids outside [0, 2^32-1].
	ErrInvalidID = errors.New("invalid id")

	// ErrInvalidDescriptors is returned when descriptors do not fit the
	// configured descriptor length or the feature points.
	ErrInvalidDescriptors = errors.New("invalid descriptors")
)

// ErrDescriptorMismatch indicates a descriptor buffer whose size is not
// Points*BytesPerFeature. It matches ErrInvalidDescriptors with errors.Is.
type ErrDescriptorMismatch struct {
	Points          int
	Bytes           int
	BytesPerFeature int
	cause           error
}

func (e *ErrDescriptorMismatch) Error() string {
	return fmt.Sprintf("descriptor mismatch: %d points need %d bytes at %d bytes per feature, got %d",
		e.Points, e.Points*e.BytesPerFeature, e.BytesPerFeature, e.Bytes)
}

func (e *ErrDescriptorMismatch) Unwrap() error { return e.cause }

// Is reports whether target is ErrInvalidDescriptors.
func (e *ErrDescriptorMismatch) Is(target error) bool { return target == ErrInvalidDescriptors }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, extractor.ErrInvalidImage), errors.Is(err, keyframe.ErrInvalidDimensions):
		return fmt.Errorf("%w: %w", ErrInvalidImage, err)
	case errors.Is(err, keyframe.ErrIndexNotBuilt), errors.Is(err, index.ErrNotBuilt):
		return fmt.Errorf("%w: %w", ErrIndexNotBuilt, err)
	case errors.Is(err, keyframe.ErrMisaligned):
		return fmt.Errorf("%w: %w", ErrInvalidDescriptors, err)
	}

	var dm *index.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return fmt.Errorf("%w: %w", ErrInvalidDescriptors, err)
	}

	return err
}
