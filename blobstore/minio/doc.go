// Package minio provides a blobstore.Store implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible servers such as Ceph,
// SeaweedFS and Garage, without pulling in the AWS SDK.
//
// # Basic Usage
//
//	store, err := minioblob.Dial("localhost:9000", "minioadmin", "minioadmin", false,
//	    "my-bucket", "diagnostics/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rec := diagnostics.NewRecorder(store)
package minio
