// Package flat provides an exact linear-scan index over binary descriptors.
package flat

import (
	"context"

	"github.com/hupe1980/vismatch/distance"
	"github.com/hupe1980/vismatch/index"
)

// Compile-time check to ensure Flat satisfies the index interface.
var _ index.Index = (*Flat)(nil)

// Flat compares a query with every indexed descriptor.
// It is safe for concurrent Search calls once built.
type Flat struct {
	descriptors     []byte
	bytesPerFeature int
	n               int
}

// New returns an empty flat index.
func New() *Flat { return &Flat{} }

// NewIndex is a Factory for Flat.
func NewIndex() index.Index { return New() }

// Build indexes descriptors. The buffer is retained, not copied.
func (f *Flat) Build(ctx context.Context, descriptors []byte, bytesPerFeature int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := index.CheckBuild(descriptors, bytesPerFeature)
	if err != nil {
		return err
	}
	f.descriptors = descriptors
	f.bytesPerFeature = bytesPerFeature
	f.n = n
	return nil
}

// Search returns the k exact nearest neighbours of query.
func (f *Flat) Search(query []byte, k int) ([]index.Neighbor, error) {
	if err := index.CheckQuery(query, f.bytesPerFeature); err != nil {
		return nil, err
	}
	if k <= 0 || f.n == 0 {
		return []index.Neighbor{}, nil
	}

	c := index.NewCollector(min(k, f.n))
	bpf := f.bytesPerFeature
	for i := 0; i < f.n; i++ {
		c.Offer(i, distance.Hamming(query, f.descriptors[i*bpf:(i+1)*bpf]))
	}
	return c.Results(), nil
}

// Len returns the number of indexed descriptors.
func (f *Flat) Len() int { return f.n }
