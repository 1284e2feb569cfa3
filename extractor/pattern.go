package extractor

import "math"

// receptor is one receptive field of the sampling pattern, in level pixels.
type receptor struct {
	x, y float64
	half int // box half-size used to average the field
}

var ringRadii = [...]float64{2.5, 4, 5.5, 7.5, 9.5, 12, 14.5}

const pointsPerRing = 6

// receptors is the centre field followed by the rings, inner to outer.
var receptors = buildReceptors()

// pairs lists receptor comparisons ordered by ring stride; descriptors of
// B bytes use the first 8*B entries.
var pairs = buildPairs(len(receptors))

// MaxBytesPerFeature is the longest descriptor the pattern supports.
var MaxBytesPerFeature = len(pairs) / 8

// patternRadius bounds every sample the descriptor touches.
var patternRadius = func() int {
	var r float64
	for _, rc := range receptors {
		r = math.Max(r, math.Hypot(rc.x, rc.y)+float64(rc.half))
	}
	return int(math.Ceil(r))
}()

// border keeps keypoints far enough from the edge for the full rotated pattern
// and for the Harris window.
var border = patternRadius + 2

const orientationRadius = 9

func buildReceptors() []receptor {
	out := []receptor{{half: 1}}
	for k, r := range ringRadii {
		offset := float64(k%2) * math.Pi / pointsPerRing
		half := max(1, int(math.Round(r/4)))
		for i := 0; i < pointsPerRing; i++ {
			theta := offset + 2*math.Pi*float64(i)/pointsPerRing
			out = append(out, receptor{
				x:    r * math.Cos(theta),
				y:    r * math.Sin(theta),
				half: half,
			})
		}
	}
	return out
}

func buildPairs(n int) [][2]int {
	out := make([][2]int, 0, n*(n-1)/2)
	for d := 1; d < n; d++ {
		for i := 0; i+d < n; i++ {
			out = append(out, [2]int{i, i + d})
		}
	}
	return out
}
