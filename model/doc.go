// Package model defines the value types shared by the extraction, matching and
// registry layers.
//
// # Feature Types
//
//   - FeaturePoint: 2D keypoint location with orientation, scale and response
//   - Point3D: caller-supplied 3D point associated with an enrolled image
//
// # Matching Types
//
//   - Correspondence: query point index ↔ enrolled point index with Hamming distance
//   - Refset: snapshot of one enrolled image used by diagnostic exports
package model
