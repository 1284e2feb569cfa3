package distance

import (
	"fmt"

	"github.com/steakknife/hamming"
)

// Hamming returns the number of differing bits between a and b.
// Assumes slices are the same length (caller's responsibility).
func Hamming(a, b []byte) int {
	return hamming.Bytes(a, b)
}

// SetBit sets bit k of desc.
func SetBit(desc []byte, k int) {
	desc[k>>3] |= 1 << (k & 7)
}

// Validate checks that buf holds a whole number of descriptors.
func Validate(buf []byte, bytesPerFeature int) error {
	if bytesPerFeature <= 0 {
		return fmt.Errorf("invalid descriptor length: %d", bytesPerFeature)
	}
	if len(buf)%bytesPerFeature != 0 {
		return fmt.Errorf("descriptor buffer of %d bytes is not a multiple of %d", len(buf), bytesPerFeature)
	}
	return nil
}
