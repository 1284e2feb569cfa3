// Package geometry provides planar homographies: estimation from point
// correspondences with the normalized direct linear transform, projection and
// reprojection error.
package geometry
