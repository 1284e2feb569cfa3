// Package hash provides the checksum used by diagnostic snapshots.
//
// Snapshots store the CRC32-Castagnoli (CRC32C) of their uncompressed
// payload so a reader can tell a damaged blob from a valid one before
// decoding it.
//
//	checksum := hash.CRC32C(data)
package hash
