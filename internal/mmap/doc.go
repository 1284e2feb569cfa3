// Package mmap maps files read-only into memory.
//
// The local blob store lends diagnostic snapshots to decoders through View,
// so a snapshot is decompressed and checksummed straight from the page cache
// without first being copied onto the heap:
//
//	err := mmap.View(path, func(data []byte) error {
//		_, _, err := diagnostics.Decode(data)
//		return err
//	})
//
// Unix uses mmap(2) with madvise(2) hints, Windows uses a read-only file
// mapping view. Other platforms fall back to reading the file.
package mmap
