// Package index defines nearest-neighbour search over binary descriptors.
//
// Two implementations are provided:
//
//   - flat: exact linear scan; every query compares against every descriptor.
//   - hct: hierarchical clustering tree built with Hamming k-medoids and
//     searched best-bin-first under a bound on leaf-point checks.
//
// Distances are Hamming distances in bits. Search results are ordered by
// ascending distance; equal distances are ordered by ascending point index.
//
// # Index Interface
//
//	type Index interface {
//	    Build(ctx context.Context, descriptors []byte, bytesPerFeature int) error
//	    Search(query []byte, k int) ([]Neighbor, error)
//	    Len() int
//	}
//
// An index does not copy the descriptor buffer passed to Build; the caller
// must not mutate it while the index is in use.
package index
