package vismatch

import (
	"slices"

	"github.com/hupe1980/vismatch/geometry"
	"github.com/hupe1980/vismatch/model"
)

// NoMatch is the id reported when no enrolled image was recognized.
const NoMatch = -1

// CandidateOutcome records how one enrolled keyframe fared in a query.
type CandidateOutcome struct {
	// ID is the enrolled id.
	ID int
	// Tentative is the number of correspondences that passed the matcher.
	Tentative int
	// Verified reports whether geometric verification ran.
	Verified bool
	// Inliers is the size of the best consensus set found.
	Inliers int
	// Accepted reports whether Inliers reached the acceptance threshold.
	Accepted bool
}

// MatchResult is the outcome of one Query. It is immutable; accessors return copies.
type MatchResult struct {
	matchedID        int
	homography       *geometry.Homography
	inliers          []model.Correspondence
	tentative        int
	queryPoints      []model.FeaturePoint
	queryDescriptors []byte
	candidates       []CandidateOutcome
}

func noMatch(points []model.FeaturePoint, descriptors []byte) *MatchResult {
	return &MatchResult{
		matchedID:        NoMatch,
		inliers:          []model.Correspondence{},
		queryPoints:      points,
		queryDescriptors: descriptors,
		candidates:       []CandidateOutcome{},
	}
}

// Found reports whether an enrolled image was recognized.
func (r *MatchResult) Found() bool { return r.matchedID != NoMatch }

// MatchedID returns the recognized id, or NoMatch.
func (r *MatchResult) MatchedID() int { return r.matchedID }

// Geometry returns the homography mapping points of the matched enrolled
// image to the query image, or nil when nothing was recognized.
func (r *MatchResult) Geometry() *geometry.Homography {
	if r.homography == nil {
		return nil
	}
	h := *r.homography
	return &h
}

// Inliers returns the verified correspondences in tentative order. It is
// empty when nothing was recognized.
func (r *MatchResult) Inliers() []model.Correspondence { return slices.Clone(r.inliers) }

// Tentative returns the number of tentative correspondences with the matched image.
func (r *MatchResult) Tentative() int { return r.tentative }

// QueryPoints returns the feature points extracted from the query image.
func (r *MatchResult) QueryPoints() []model.FeaturePoint { return slices.Clone(r.queryPoints) }

// QueryDescriptors returns the descriptors extracted from the query image.
func (r *MatchResult) QueryDescriptors() []byte { return slices.Clone(r.queryDescriptors) }

// Candidates returns the per-candidate outcomes in ascending id order.
func (r *MatchResult) Candidates() []CandidateOutcome { return slices.Clone(r.candidates) }
