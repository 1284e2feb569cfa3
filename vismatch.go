package vismatch

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vismatch/extractor"
	"github.com/hupe1980/vismatch/geometry"
	"github.com/hupe1980/vismatch/index"
	"github.com/hupe1980/vismatch/index/flat"
	"github.com/hupe1980/vismatch/index/hct"
	"github.com/hupe1980/vismatch/internal/conv"
	"github.com/hupe1980/vismatch/keyframe"
	"github.com/hupe1980/vismatch/matcher"
	"github.com/hupe1980/vismatch/model"
	"github.com/hupe1980/vismatch/verifier"
)

// Database is a registry of enrolled keyframes that answers recognition
// queries. Use New to create one.
type Database struct {
	mu        sync.RWMutex
	ids       *roaring.Bitmap
	keyframes map[uint32]*keyframe.Keyframe
	points3D  map[uint32][]model.Point3D

	extractor *extractor.Extractor
	matcher   *matcher.Matcher
	verifier  *verifier.Verifier
	newIndex  index.Factory

	opts options
}

// New creates an empty Database.
func New(optFns ...Option) (*Database, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	ext, err := extractor.New(opts.extractor)
	if err != nil {
		return nil, err
	}
	m, err := matcher.New(opts.matcher)
	if err != nil {
		return nil, err
	}
	v, err := verifier.New(opts.verifier)
	if err != nil {
		return nil, err
	}

	var factory index.Factory
	switch opts.indexKind {
	case index.KindFlat:
		factory = flat.NewIndex
	case index.KindHCT:
		factory, err = hct.NewFactory(opts.treeOptions...)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported index kind: %s", opts.indexKind)
	}

	return &Database{
		ids:       roaring.New(),
		keyframes: make(map[uint32]*keyframe.Keyframe),
		points3D:  make(map[uint32][]model.Point3D),
		extractor: ext,
		matcher:   m,
		verifier:  v,
		newIndex:  factory,
		opts:      opts,
	}, nil
}

// BytesPerFeature returns the descriptor length used by this Database.
func (db *Database) BytesPerFeature() int { return db.extractor.BytesPerFeature() }

// ComputeFeatures extracts feature points and descriptors without touching
// the registry.
func (db *Database) ComputeFeatures(ctx context.Context, pixels []byte, width, height int) ([]model.FeaturePoint, []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	points, descs, err := db.extractor.Extract(pixels, width, height)
	if err != nil {
		return nil, nil, translateError(err)
	}
	return points, descs, nil
}

// AddImage extracts the features of an image and enrolls them under id.
func (db *Database) AddImage(ctx context.Context, pixels []byte, width, height, id int) (err error) {
	start := time.Now()
	points := 0
	defer func() {
		db.opts.metricsCollector.RecordEnroll(points, time.Since(start), err)
		db.opts.logger.LogEnroll(ctx, id, points, err)
	}()

	key, err := db.checkNew(id)
	if err != nil {
		return err
	}

	pts, descs, err := db.ComputeFeatures(ctx, pixels, width, height)
	if err != nil {
		return err
	}

	kf := keyframe.New(db.newIndex)
	kf.SetDimensions(width, height)
	kf.SetPoints(pts)
	kf.SetDescriptors(descs, db.BytesPerFeature())
	if err := db.enroll(ctx, key, kf, nil); err != nil {
		return err
	}
	points = len(pts)
	return nil
}

// AddKeyframe enrolls precomputed features under id and associates points3D
// with it. descriptors must hold len(points)*BytesPerFeature() bytes. The
// inputs are copied.
func (db *Database) AddKeyframe(ctx context.Context, points []model.FeaturePoint, descriptors []byte, points3D []model.Point3D, width, height, id int) (err error) {
	start := time.Now()
	enrolled := 0
	defer func() {
		db.opts.metricsCollector.RecordEnroll(enrolled, time.Since(start), err)
		db.opts.logger.LogEnroll(ctx, id, enrolled, err)
	}()

	key, err := db.checkNew(id)
	if err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidImage, width, height)
	}
	bpf := db.BytesPerFeature()
	if len(descriptors) != len(points)*bpf {
		return &ErrDescriptorMismatch{Points: len(points), Bytes: len(descriptors), BytesPerFeature: bpf}
	}

	kf := keyframe.New(db.newIndex)
	kf.SetDimensions(width, height)
	kf.SetPoints(slices.Clone(points))
	kf.SetDescriptors(slices.Clone(descriptors), bpf)
	if err := db.enroll(ctx, key, kf, slices.Clone(points3D)); err != nil {
		return err
	}
	enrolled = len(points)
	return nil
}

// checkNew validates id and fails fast when it is already enrolled.
func (db *Database) checkNew(id int) (uint32, error) {
	key, err := conv.IntToUint32(id)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	db.mu.RLock()
	exists := db.ids.Contains(key)
	db.mu.RUnlock()
	if exists {
		return 0, fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	return key, nil
}

func (db *Database) enroll(ctx context.Context, key uint32, kf *keyframe.Keyframe, points3D []model.Point3D) error {
	if err := kf.BuildIndex(ctx); err != nil {
		return translateError(err)
	}

	db.mu.Lock()
	if db.ids.Contains(key) {
		db.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrDuplicateID, key)
	}
	db.ids.Add(key)
	db.keyframes[key] = kf
	if points3D != nil {
		db.points3D[key] = points3D
	}
	db.mu.Unlock()

	db.opts.observer.ObserveEnrollment(ctx, kf.Refset(int(key)))
	return nil
}

// Erase removes id, its keyframe and its 3D points. It reports whether id
// was enrolled.
func (db *Database) Erase(id int) bool {
	existed := false
	if key, err := conv.IntToUint32(id); err == nil {
		db.mu.Lock()
		existed = db.ids.CheckedRemove(key)
		delete(db.keyframes, key)
		delete(db.points3D, key)
		db.mu.Unlock()
	}

	db.opts.metricsCollector.RecordErase(existed)
	db.opts.logger.LogErase(context.Background(), id, existed)
	return existed
}

// Count returns the number of enrolled ids.
func (db *Database) Count() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return int(db.ids.GetCardinality())
}

// IDs returns the enrolled ids in ascending order.
func (db *Database) IDs() []int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]int, 0, db.ids.GetCardinality())
	it := db.ids.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}

func (db *Database) lookup(id int) (*keyframe.Keyframe, uint32, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.lookupLocked(id)
}

// lookupLocked requires db.mu to be held.
func (db *Database) lookupLocked(id int) (*keyframe.Keyframe, uint32, error) {
	key, err := conv.IntToUint32(id)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	kf, ok := db.keyframes[key]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return kf, key, nil
}

// Keyframe returns a read-only view of the keyframe enrolled under id.
func (db *Database) Keyframe(id int) (KeyframeView, error) {
	kf, _, err := db.lookup(id)
	if err != nil {
		return KeyframeView{}, err
	}
	return KeyframeView{kf: kf}, nil
}

// FeaturePoints returns a copy of the feature points enrolled under id.
func (db *Database) FeaturePoints(id int) ([]model.FeaturePoint, error) {
	kf, _, err := db.lookup(id)
	if err != nil {
		return nil, err
	}
	return slices.Clone(kf.Points()), nil
}

// Descriptors returns a copy of the descriptors enrolled under id.
func (db *Database) Descriptors(id int) ([]byte, error) {
	kf, _, err := db.lookup(id)
	if err != nil {
		return nil, err
	}
	return slices.Clone(kf.Descriptors()), nil
}

// Points3D returns a copy of the 3D points associated with id. An id
// enrolled without 3D points yields an empty slice.
func (db *Database) Points3D(id int) ([]model.Point3D, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	_, key, err := db.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	pts := db.points3D[key]
	if pts == nil {
		return []model.Point3D{}, nil
	}
	return slices.Clone(pts), nil
}

// Width returns the width of the image enrolled under id.
func (db *Database) Width(id int) (int, error) {
	kf, _, err := db.lookup(id)
	if err != nil {
		return 0, err
	}
	return kf.Width(), nil
}

// Height returns the height of the image enrolled under id.
func (db *Database) Height(id int) (int, error) {
	kf, _, err := db.lookup(id)
	if err != nil {
		return 0, err
	}
	return kf.Height(), nil
}

type candidate struct {
	id int
	kf *keyframe.Keyframe
}

type evaluation struct {
	outcome   CandidateOutcome
	inliers   []model.Correspondence
	geometry  geometry.Homography
	tentative int
}

// Query recognizes the image against every enrolled keyframe. An image
// without keypoints, or one that no candidate verifies, yields a result with
// Found() == false and a nil error.
func (db *Database) Query(ctx context.Context, pixels []byte, width, height int) (res *MatchResult, err error) {
	start := time.Now()
	var cands []candidate
	defer func() {
		found := res != nil && res.Found()
		db.opts.metricsCollector.RecordQuery(len(cands), found, time.Since(start), err)
		if res != nil {
			db.opts.logger.LogQuery(ctx, len(res.queryPoints), len(cands), res.matchedID, len(res.inliers), err)
		} else {
			db.opts.logger.LogQuery(ctx, 0, len(cands), NoMatch, 0, err)
		}
	}()

	points, descs, err := db.ComputeFeatures(ctx, pixels, width, height)
	if err != nil {
		return nil, err
	}

	res = noMatch(points, descs)
	if len(points) < db.opts.matcher.MinCorrespondences {
		return res, nil
	}

	cands = db.candidates(ctx)
	evals := make([]evaluation, len(cands))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(db.opts.parallelism)
	for i, c := range cands {
		g.Go(func() error {
			ev, err := db.evaluate(gctx, points, descs, c)
			if err != nil {
				return err
			}
			evals[i] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, translateError(err)
	}

	best := -1
	res.candidates = make([]CandidateOutcome, len(evals))
	for i, ev := range evals {
		res.candidates[i] = ev.outcome
		// Candidates are in ascending id order, so strict > keeps the lowest id on ties.
		if ev.outcome.Accepted && (best < 0 || ev.outcome.Inliers > evals[best].outcome.Inliers) {
			best = i
		}
	}
	if best >= 0 {
		w := evals[best]
		h := w.geometry
		res.matchedID = w.outcome.ID
		res.homography = &h
		res.inliers = w.inliers
		res.tentative = w.tentative
	}
	return res, nil
}

// candidates snapshots the keyframes to evaluate in ascending id order.
func (db *Database) candidates(ctx context.Context) []candidate {
	db.mu.RLock()
	defer db.mu.RUnlock()

	set := db.ids
	if db.opts.candidateFilter != nil {
		if filtered := db.opts.candidateFilter(ctx, db.ids.Clone()); filtered != nil {
			set = roaring.And(db.ids, filtered)
		}
	}

	out := make([]candidate, 0, set.GetCardinality())
	it := set.Iterator()
	for it.HasNext() {
		key := it.Next()
		out = append(out, candidate{id: int(key), kf: db.keyframes[key]})
	}
	return out
}

func (db *Database) evaluate(ctx context.Context, points []model.FeaturePoint, descs []byte, c candidate) (evaluation, error) {
	ev := evaluation{outcome: CandidateOutcome{ID: c.id}}
	if err := ctx.Err(); err != nil {
		return ev, err
	}
	if c.kf.Len() == 0 {
		return ev, nil
	}

	corrs, err := db.matcher.Match(descs, db.BytesPerFeature(), c.kf)
	if err != nil {
		return ev, err
	}
	ev.outcome.Tentative = len(corrs)
	ev.tentative = len(corrs)
	if !db.matcher.Enough(corrs) {
		return ev, nil
	}

	target := c.kf.Points()
	src := make([]geometry.Point, len(corrs))
	dst := make([]geometry.Point, len(corrs))
	for i, cr := range corrs {
		tp, qp := target[cr.TargetIndex], points[cr.QueryIndex]
		src[i] = geometry.Point{X: float64(tp.X), Y: float64(tp.Y)}
		dst[i] = geometry.Point{X: float64(qp.X), Y: float64(qp.Y)}
	}

	vr, ok, err := db.verifier.Verify(ctx, src, dst)
	if err != nil {
		return ev, err
	}
	ev.outcome.Verified = true
	ev.outcome.Inliers = len(vr.Inliers)
	ev.outcome.Accepted = ok
	if ok {
		ev.geometry = vr.Homography
		ev.inliers = make([]model.Correspondence, len(vr.Inliers))
		for i, pos := range vr.Inliers {
			ev.inliers[i] = corrs[pos]
		}
	}
	return ev, nil
}

// KeyframeView is a read-only view of an enrolled keyframe. It stays valid
// after the id is erased.
type KeyframeView struct {
	kf *keyframe.Keyframe
}

// Width returns the image width in pixels.
func (v KeyframeView) Width() int { return v.kf.Width() }

// Height returns the image height in pixels.
func (v KeyframeView) Height() int { return v.kf.Height() }

// Len returns the number of feature points.
func (v KeyframeView) Len() int { return v.kf.Len() }

// BytesPerFeature returns the descriptor length in bytes.
func (v KeyframeView) BytesPerFeature() int { return v.kf.BytesPerFeature() }

// Point returns feature point i.
func (v KeyframeView) Point(i int) model.FeaturePoint { return v.kf.Points()[i] }

// Descriptor returns a copy of the descriptor of point i.
func (v KeyframeView) Descriptor(i int) []byte { return slices.Clone(v.kf.Descriptor(i)) }

// Search returns up to k enrolled descriptors nearest to query.
func (v KeyframeView) Search(query []byte, k int) ([]index.Neighbor, error) {
	res, err := v.kf.Search(query, k)
	return res, translateError(err)
}
