// Package vismatch recognizes planar targets in grayscale images.
//
// Reference images are enrolled as local binary features (keypoints plus
// fixed-length descriptors). A query image is matched against every enrolled
// image: descriptors are paired by Hamming distance, the pairs are verified
// with a RANSAC homography, and the enrolled image with the most inliers wins.
//
// # Quick Start
//
//	db, err := vismatch.New()
//	if err != nil {
//	    return err
//	}
//	if err := db.AddImage(ctx, marker, 640, 480, 1); err != nil {
//	    return err
//	}
//
//	res, err := db.Query(ctx, frame, 640, 480)
//	if err != nil {
//	    return err
//	}
//	if res.Found() {
//	    fmt.Println(res.MatchedID(), len(res.Inliers()), res.Geometry())
//	}
//
// # Precomputed Features
//
// Features computed elsewhere (or earlier with ComputeFeatures) are enrolled
// with AddKeyframe, optionally together with caller-defined 3D points:
//
//	points, descs, _ := db.ComputeFeatures(ctx, marker, 640, 480)
//	_ = db.AddKeyframe(ctx, points, descs, corners3D, 640, 480, 7)
//
// # Results
//
// Query returns a MatchResult value; nothing about the last query is stored
// in the Database. A query without keypoints, or without any candidate
// passing verification, is not an error: MatchResult.Found reports false and
// MatchedID returns NoMatch.
//
// The winning candidate has the highest inlier count; equal counts resolve to
// the lowest id. Candidates are evaluated concurrently, but the result is
// identical to a sequential evaluation.
//
// # Concurrency
//
// A Database is safe for concurrent use. Queries and accessors share a read
// lock; enrollment and erase take the write lock only to update the registry.
//
// # Identifiers
//
// Ids are non-negative and fit in 32 bits. Enrolling an id twice fails with
// ErrDuplicateID. Erase removes the keyframe and its 3D points.
package vismatch
