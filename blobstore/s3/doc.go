// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("diagnostics/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	rec := diagnostics.NewRecorder(store)
//	db, err := vismatch.New(vismatch.WithEnrollmentObserver(rec))
//
// # Features
//
//   - Multipart uploads for large blobs via the transfer manager
//   - CRC32C integrity checksums on every upload
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
