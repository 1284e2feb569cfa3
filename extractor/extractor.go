package extractor

import (
	"errors"
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/hupe1980/vismatch/distance"
	"github.com/hupe1980/vismatch/internal/imgproc"
	"github.com/hupe1980/vismatch/model"
	"github.com/lafin/fast"
)

// ErrInvalidImage is returned for nil/short pixel buffers or non-positive dimensions.
var ErrInvalidImage = imgproc.ErrInvalidImage

// ErrInvalidOptions is returned by New when Options are out of range.
var ErrInvalidOptions = errors.New("invalid extractor options")

// Options configures feature extraction.
type Options struct {
	// BytesPerFeature is the descriptor length in bytes (1..MaxBytesPerFeature).
	BytesPerFeature int
	// Octaves is the maximum number of pyramid levels.
	Octaves int
	// FASTThreshold is the intensity difference used by the FAST test.
	FASTThreshold int
	// MaxFeatures caps the number of keypoints, strongest first.
	MaxFeatures int
}

// DefaultOptions contains the default extraction settings.
var DefaultOptions = Options{
	BytesPerFeature: 96,
	Octaves:         4,
	FASTThreshold:   20,
	MaxFeatures:     500,
}

// Extractor computes keypoints and descriptors. It is safe for concurrent use.
type Extractor struct {
	opts Options
}

// New creates an Extractor.
func New(opts Options) (*Extractor, error) {
	if opts.BytesPerFeature <= 0 || opts.BytesPerFeature > MaxBytesPerFeature {
		return nil, fmt.Errorf("%w: bytes per feature %d not in [1, %d]", ErrInvalidOptions, opts.BytesPerFeature, MaxBytesPerFeature)
	}
	if opts.Octaves <= 0 {
		return nil, fmt.Errorf("%w: octaves must be positive", ErrInvalidOptions)
	}
	if opts.FASTThreshold <= 0 || opts.FASTThreshold > 255 {
		return nil, fmt.Errorf("%w: fast threshold %d not in [1, 255]", ErrInvalidOptions, opts.FASTThreshold)
	}
	if opts.MaxFeatures <= 0 {
		return nil, fmt.Errorf("%w: max features must be positive", ErrInvalidOptions)
	}
	return &Extractor{opts: opts}, nil
}

// Options returns the extractor configuration.
func (e *Extractor) Options() Options { return e.opts }

// BytesPerFeature returns the descriptor length in bytes.
func (e *Extractor) BytesPerFeature() int { return e.opts.BytesPerFeature }

// Extract detects keypoints in a row-major 8-bit buffer and describes them.
//
// The returned descriptor buffer holds len(points)*BytesPerFeature bytes,
// positionally aligned with points. An image without keypoints yields empty,
// non-nil slices and no error.
func (e *Extractor) Extract(pixels []byte, width, height int) ([]model.FeaturePoint, []byte, error) {
	g, err := imgproc.FromPixels(pixels, width, height)
	if err != nil {
		return nil, nil, err
	}
	return e.extract(g)
}

type level struct {
	img      *image.Gray
	integral *imgproc.Integral
	scale    float64
}

type candidate struct {
	level int
	x, y  int
	score float32
}

func (e *Extractor) extract(base *image.Gray) ([]model.FeaturePoint, []byte, error) {
	levels := e.pyramid(base)

	var cands []candidate
	for li := range levels {
		cands = append(cands, e.detect(levels[li].img, li)...)
	}

	slices.SortFunc(cands, func(a, b candidate) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		case a.level != b.level:
			return a.level - b.level
		case a.y != b.y:
			return a.y - b.y
		default:
			return a.x - b.x
		}
	})
	if len(cands) > e.opts.MaxFeatures {
		cands = cands[:e.opts.MaxFeatures]
	}

	bpf := e.opts.BytesPerFeature
	points := make([]model.FeaturePoint, len(cands))
	descriptors := make([]byte, len(cands)*bpf)
	for i, c := range cands {
		lv := &levels[c.level]
		if lv.integral == nil {
			lv.integral = imgproc.NewIntegral(lv.img)
		}
		angle := orientation(lv.img, c.x, c.y)
		describe(lv.integral, c.x, c.y, angle, descriptors[i*bpf:(i+1)*bpf])
		points[i] = model.FeaturePoint{
			X:      float32((float64(c.x)+0.5)*lv.scale - 0.5),
			Y:      float32((float64(c.y)+0.5)*lv.scale - 0.5),
			Angle:  float32(angle),
			Scale:  float32(lv.scale),
			Maxima: c.score,
		}
	}
	return points, descriptors, nil
}

func (e *Extractor) pyramid(base *image.Gray) []level {
	minSize := 2*border + 8
	levels := make([]level, 0, e.opts.Octaves)
	img := imgproc.Smooth(base)
	scale := 1.0
	for len(levels) < e.opts.Octaves {
		if img.Rect.Dx() < minSize || img.Rect.Dy() < minSize {
			break
		}
		levels = append(levels, level{img: img, scale: scale})
		img = imgproc.Smooth(imgproc.Downsample(img))
		scale *= 2
	}
	return levels
}

// detect returns the FAST corners of one level that are Harris-positive 3×3
// local maxima and lie inside the pattern border.
func (e *Extractor) detect(img *image.Gray, li int) []candidate {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	corners := fast.FindCorners(imgproc.PixelMap(img), w, h, e.opts.FASTThreshold)

	scores := make(map[int]float32, len(corners)/2)
	var raw []candidate
	for i := 0; i+1 < len(corners); i += 2 {
		x, y := corners[i], corners[i+1]
		if x < border || y < border || x >= w-border || y >= h-border {
			continue
		}
		s := imgproc.Harris(img, x, y)
		if s <= 0 {
			continue
		}
		if _, dup := scores[y*w+x]; dup {
			continue
		}
		scores[y*w+x] = s
		raw = append(raw, candidate{level: li, x: x, y: y, score: s})
	}

	out := raw[:0]
	for _, c := range raw {
		if isLocalMax(scores, w, c) {
			out = append(out, c)
		}
	}
	return out
}

func isLocalMax(scores map[int]float32, w int, c candidate) bool {
	key := c.y*w + c.x
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nk := (c.y+dy)*w + c.x + dx
			s, ok := scores[nk]
			if !ok {
				continue
			}
			// Equal scores: the earlier raster position wins.
			if s > c.score || (s == c.score && nk < key) {
				return false
			}
		}
	}
	return true
}

// orientation returns the intensity-centroid angle of the disk around (x, y).
func orientation(img *image.Gray, x, y int) float64 {
	var m10, m01 float64
	const r = orientationRadius
	for dy := -r; dy <= r; dy++ {
		row := img.Pix[(y+dy)*img.Stride:]
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r*r {
				continue
			}
			v := float64(row[x+dx])
			m10 += float64(dx) * v
			m01 += float64(dy) * v
		}
	}
	if m10 == 0 && m01 == 0 {
		return 0
	}
	return math.Atan2(m01, m10)
}

// describe writes the descriptor for a keypoint at level coordinates (x, y).
func describe(in *imgproc.Integral, x, y int, angle float64, dst []byte) {
	sin, cos := math.Sincos(angle)
	var values [64]float32
	for i, rc := range receptors {
		px := x + int(math.Round(cos*rc.x-sin*rc.y))
		py := y + int(math.Round(sin*rc.x+cos*rc.y))
		values[i] = in.BoxMean(px, py, rc.half)
	}
	clear(dst)
	for k := 0; k < 8*len(dst); k++ {
		p := pairs[k]
		if values[p[0]] < values[p[1]] {
			distance.SetBit(dst, k)
		}
	}
}
