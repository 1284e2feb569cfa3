// Package imgproc holds the grayscale image primitives used by the extractor:
// plane construction, Gaussian smoothing, 2× pyramid reduction, integral images
// and the Harris corner response.
//
// All functions are pure: they never modify their inputs.
package imgproc
