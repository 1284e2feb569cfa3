// Package diagnostics exports enrolled reference sets for offline inspection.
//
// A Recorder is a vismatch.EnrollmentObserver. Each enrollment is encoded
// with a codec, optionally compressed, and written to a blobstore.Store
// under "<prefix><imageId>/<uuid>.vmr". Export is best effort: failures are
// logged and counted but never reach the enrolling caller, and a rate
// limiter drops snapshots under bursty enrollment.
//
//	store := blobstore.NewLocalStore("/var/lib/vismatch/diag")
//	rec := diagnostics.NewRecorder(store, diagnostics.WithCompression(diagnostics.CompressionZSTD))
//	db, _ := vismatch.New(vismatch.WithEnrollmentObserver(rec))
//
// Snapshots are self-describing; Load reads one back regardless of the
// codec and compression it was written with.
package diagnostics
