package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/vismatch/distance"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Descriptors generates num random descriptors of bytesPerFeature bytes each,
// concatenated into one buffer.
func (r *RNG) Descriptors(num, bytesPerFeature int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]byte, num*bytesPerFeature)
	_, _ = r.rand.Read(out)
	return out
}

// FlipBits returns a copy of desc with n distinct random bits inverted.
func (r *RNG) FlipBits(desc []byte, n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]byte, len(desc))
	copy(out, desc)
	for _, k := range r.rand.Perm(8 * len(desc))[:n] {
		out[k>>3] ^= 1 << (k & 7)
	}
	return out
}

// ClusteredDescriptors generates num descriptors around clusters random
// centres, each a centre with up to spread bits flipped.
func (r *RNG) ClusteredDescriptors(num, bytesPerFeature, clusters, spread int) []byte {
	centres := r.Descriptors(clusters, bytesPerFeature)
	out := make([]byte, 0, num*bytesPerFeature)
	for i := range num {
		c := centres[(i%clusters)*bytesPerFeature : (i%clusters+1)*bytesPerFeature]
		out = append(out, r.FlipBits(c, r.Intn(spread+1))...)
	}
	return out
}

// TexturedImage renders a width×height grayscale image made of rects random
// axis-aligned rectangles over a dark background, with low-amplitude noise so
// that structurally similar corners still differ in their surroundings.
func (r *RNG) TexturedImage(width, height, rects int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	pix := make([]byte, width*height)
	for i := range pix {
		pix[i] = 40
	}
	for range rects {
		w := 10 + r.rand.Intn(max(1, width/5))
		h := 10 + r.rand.Intn(max(1, height/5))
		x0 := r.rand.Intn(max(1, width-w))
		y0 := r.rand.Intn(max(1, height-h))
		v := byte(90 + r.rand.Intn(160))
		for y := y0; y < min(y0+h, height); y++ {
			row := pix[y*width:]
			for x := x0; x < min(x0+w, width); x++ {
				row[x] = v
			}
		}
	}
	for i := range pix {
		n := int(pix[i]) + r.rand.Intn(9) - 4
		pix[i] = byte(min(255, max(0, n)))
	}
	return pix
}

// UniformImage returns a width×height image filled with a single value.
func UniformImage(width, height int, value byte) []byte {
	pix := make([]byte, width*height)
	for i := range pix {
		pix[i] = value
	}
	return pix
}

// ExactNearest returns the index and Hamming distance of the descriptor in
// descs closest to query. Ties resolve to the lower index.
func ExactNearest(query, descs []byte, bytesPerFeature int) (int, int) {
	best, bestDist := -1, int(^uint(0)>>1)
	for i := 0; i*bytesPerFeature < len(descs); i++ {
		d := distance.Hamming(query, descs[i*bytesPerFeature:(i+1)*bytesPerFeature])
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

// ComputeRecall returns the fraction of approx entries equal to exact entries
// at the same position.
func ComputeRecall(approx, exact []int) float64 {
	if len(exact) == 0 {
		return 1
	}
	hits := 0
	for i := range exact {
		if i < len(approx) && approx[i] == exact[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(exact))
}
