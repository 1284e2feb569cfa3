// Package distance provides the Hamming metric over binary descriptors.
//
// Descriptors are fixed-length byte strings; bit k lives in byte k/8 at bit
// position k%8 (LSB first). The distance between two descriptors is the number
// of differing bits.
//
// # Usage
//
//	d := distance.Hamming(a, b)
//	distance.SetBit(desc, 17) // desc[2] |= 0x02
package distance
