package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is a flat namespace of immutable blobs addressed by slash-separated names.
type Store interface {
	// Put writes a blob atomically, replacing any previous blob of that name.
	Put(ctx context.Context, name string, data []byte) error
	// Get returns the full contents of a blob.
	Get(ctx context.Context, name string) ([]byte, error)
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the names with the given prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Viewer is implemented by stores that can lend a blob's contents without
// copying them.
type Viewer interface {
	// View calls fn with the contents of a blob. data is only valid until fn
	// returns and must not be modified.
	View(ctx context.Context, name string, fn func(data []byte) error) error
}
