// Package blobstore provides the storage abstraction for diagnostic exports.
//
// Enrolled reference sets can be snapshotted to a Store by the diagnostics
// recorder and read back later for offline inspection. Implementations must
// be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests
//   - LocalStore: local filesystem, View lends a memory mapping
//   - s3.Store: Amazon S3, multipart uploads for large blobs
//   - minio.Store: MinIO and other S3-compatible servers
//
// # Custom Implementations
//
// Implement the Store interface to support other backends:
//
//	type Store interface {
//	    Put(ctx, name, data) error         // Atomic write
//	    Get(ctx, name) ([]byte, error)     // Full read
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Stores that can hand out a blob without copying it also implement Viewer.
package blobstore
