// Package testutil provides testing utilities for vismatch.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random descriptors and synthetic
// grayscale images, computing exact nearest neighbors, and verifying
// search recall.
//
// # Random Descriptor Generation
//
//	rng := testutil.NewRNG(seed)
//	descs := rng.Descriptors(100, 96)              // 100 × 96-byte descriptors
//	noisy := rng.FlipBits(descs[:96], 10)          // copy with 10 flipped bits
//
// # Synthetic Images
//
//	pix := rng.TexturedImage(320, 240, 40) // 40 random rectangles plus noise
//
// # Exact Search (Ground Truth)
//
//	idx, dist := testutil.ExactNearest(query, descs, 96)
package testutil
