// Package extractor converts grayscale images into keypoints and binary
// descriptors.
//
// Detection runs FAST on every level of a smoothed 2× pyramid, scores each
// corner with the Harris response and keeps 3×3 local maxima. Every surviving
// keypoint gets an intensity-centroid orientation and a retina-style descriptor:
// 43 receptive fields on concentric rings, sampled at the keypoint's level and
// rotated by its orientation, compared pairwise to produce one bit per pair.
//
// Extraction is a pure function of the pixel content and the Options; there is
// no randomness and no state carried between calls.
package extractor
