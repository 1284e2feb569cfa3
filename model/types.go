package model

import (
	"fmt"
)

// FeaturePoint is a detected keypoint in image pixel coordinates.
// It is immutable once produced by the extractor.
type FeaturePoint struct {
	// X and Y are the location in pixels of the base (level 0) image.
	X float32 `json:"x2d"`
	Y float32 `json:"y2d"`
	// Angle is the dominant orientation in radians, in (-π, π].
	Angle float32 `json:"angle"`
	// Scale is the pyramid scale factor of the detection level (1, 2, 4, ...).
	Scale float32 `json:"scale"`
	// Maxima is the detector response at the keypoint.
	Maxima float32 `json:"maxima"`
}

// String returns a compact representation of the point.
func (p FeaturePoint) String() string {
	return fmt.Sprintf("FP(%.1f,%.1f a=%.2f s=%.0f)", p.X, p.Y, p.Angle, p.Scale)
}

// Point3D is a caller-defined 3D point associated with an enrolled image.
type Point3D struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Correspondence links a query feature to a feature of an enrolled keyframe.
type Correspondence struct {
	// QueryIndex is the index into the query keyframe's points.
	QueryIndex int `json:"query"`
	// TargetIndex is the index into the enrolled keyframe's points.
	TargetIndex int `json:"target"`
	// Distance is the Hamming distance between the two descriptors.
	Distance int `json:"distance"`
}

// Refset is a read-only snapshot of an enrolled image's features.
//
// Descriptors holds len(Points)*BytesPerFeature bytes, positionally aligned
// with Points.
type Refset struct {
	ImageID         int            `json:"imageId"`
	Width           int            `json:"width"`
	Height          int            `json:"height"`
	BytesPerFeature int            `json:"bytesPerFeature"`
	Points          []FeaturePoint `json:"points"`
	Descriptors     []byte         `json:"descriptors"`
}

// Descriptor returns the descriptor of point i.
func (r Refset) Descriptor(i int) []byte {
	return r.Descriptors[i*r.BytesPerFeature : (i+1)*r.BytesPerFeature]
}
