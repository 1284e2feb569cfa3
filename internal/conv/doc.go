// Package conv provides checked integer conversions.
//
// Image ids are plain ints at the API boundary but are stored as uint32 keys in
// the registry's id bitmap; these helpers reject values that would wrap.
package conv
