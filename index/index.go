package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/hupe1980/vismatch/distance"
)

// ErrNotBuilt is returned by Search before a successful Build.
var ErrNotBuilt = errors.New("index not built")

// ErrDimensionMismatch is returned when a query's length differs from the
// indexed descriptor length.
type ErrDimensionMismatch struct {
	Expected int // Expected bytes per descriptor
	Actual   int // Actual query length
}

// Error returns the error message for dimension mismatch
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("descriptor length mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Neighbor is one search hit.
type Neighbor struct {
	// Index is the position of the descriptor in the indexed buffer.
	Index int

	// Distance is the Hamming distance to the query in bits.
	Distance int
}

// Index represents a searchable set of binary descriptors.
type Index interface {
	// Build indexes descriptors, a concatenation of equally sized descriptors.
	// It replaces any previously built state.
	Build(ctx context.Context, descriptors []byte, bytesPerFeature int) error

	// Search returns up to k nearest descriptors to query.
	Search(query []byte, k int) ([]Neighbor, error)

	// Len returns the number of indexed descriptors.
	Len() int
}

// Factory creates an empty Index.
type Factory func() Index

// Kind selects an index implementation.
type Kind int

// Index kinds.
const (
	KindFlat Kind = iota
	KindHCT
)

// String returns a string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindFlat:
		return "flat"
	case KindHCT:
		return "hct"
	default:
		return "unknown"
	}
}

// ParseKind parses the String form of a Kind, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flat":
		return KindFlat, nil
	case "hct", "tree":
		return KindHCT, nil
	default:
		return 0, fmt.Errorf("unknown index kind %q", s)
	}
}

// CheckBuild validates the arguments of Build and returns the descriptor count.
func CheckBuild(descriptors []byte, bytesPerFeature int) (int, error) {
	if err := distance.Validate(descriptors, bytesPerFeature); err != nil {
		return 0, err
	}
	n := len(descriptors) / bytesPerFeature
	if uint64(n) > math.MaxUint32 {
		return 0, fmt.Errorf("too many descriptors: %d", n)
	}
	return n, nil
}

// CheckQuery validates a query against the indexed descriptor length.
func CheckQuery(query []byte, bytesPerFeature int) error {
	if bytesPerFeature == 0 {
		return ErrNotBuilt
	}
	if len(query) != bytesPerFeature {
		return &ErrDimensionMismatch{Expected: bytesPerFeature, Actual: len(query)}
	}
	return nil
}
