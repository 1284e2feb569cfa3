package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate is returned when points do not determine a homography.
var ErrDegenerate = errors.New("degenerate point configuration")

// epsilon guards divisions by homogeneous coordinates and normalization scales.
const epsilon = 1e-12

// Point is a 2D image location.
type Point struct {
	X, Y float64
}

// Homography is a 3×3 projective transform in row-major order, scaled so that
// the bottom-right entry is 1 whenever it is non-zero.
type Homography [9]float64

// Identity returns the identity transform.
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// At returns entry (r, c).
func (h Homography) At(r, c int) float64 { return h[3*r+c] }

// Project maps p through h. ok is false when p maps to infinity.
func (h Homography) Project(p Point) (q Point, ok bool) {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if math.Abs(w) < epsilon {
		return Point{}, false
	}
	return Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}, true
}

// ReprojectionError returns the squared distance between h(src) and dst, or
// +Inf when src maps to infinity.
func (h Homography) ReprojectionError(src, dst Point) float64 {
	q, ok := h.Project(src)
	if !ok {
		return math.Inf(1)
	}
	dx, dy := q.X-dst.X, q.Y-dst.Y
	return dx*dx + dy*dy
}

// Inverse returns h⁻¹.
func (h Homography) Inverse() (Homography, error) {
	m := mat.NewDense(3, 3, h[:])
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[3*r+c] = inv.At(r, c)
		}
	}
	return out.normalized(), nil
}

// String returns the matrix rows.
func (h Homography) String() string {
	return fmt.Sprintf("[[%.6g %.6g %.6g] [%.6g %.6g %.6g] [%.6g %.6g %.6g]]",
		h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], h[8])
}

func (h Homography) normalized() Homography {
	if math.Abs(h[8]) < epsilon {
		return h
	}
	s := 1 / h[8]
	for i := range h {
		h[i] *= s
	}
	return h
}

// Fit estimates the homography mapping src[i] to dst[i] in the least-squares
// algebraic sense. At least four pairs are required.
func Fit(src, dst []Point) (Homography, error) {
	n := len(src)
	if n != len(dst) {
		return Homography{}, fmt.Errorf("point count mismatch: %d vs %d", n, len(dst))
	}
	if n < 4 {
		return Homography{}, fmt.Errorf("%w: need 4 points, got %d", ErrDegenerate, n)
	}

	ts, ok := normalization(src)
	if !ok {
		return Homography{}, ErrDegenerate
	}
	td, ok := normalization(dst)
	if !ok {
		return Homography{}, ErrDegenerate
	}

	a := mat.NewDense(2*n, 9, nil)
	for i := range src {
		s := ts.apply(src[i])
		d := td.apply(dst[i])
		a.SetRow(2*i, []float64{-s.X, -s.Y, -1, 0, 0, 0, d.X * s.X, d.X * s.Y, d.X})
		a.SetRow(2*i+1, []float64{0, 0, 0, -s.X, -s.Y, -1, d.Y * s.X, d.Y * s.Y, d.Y})
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return Homography{}, fmt.Errorf("%w: svd failed", ErrDegenerate)
	}
	var v mat.Dense
	svd.VTo(&v)

	var hn Homography
	for i := 0; i < 9; i++ {
		hn[i] = v.At(i, 8)
	}

	// H = Td⁻¹ · Hn · Ts
	h := mul(td.inverse(), mul(hn, ts.matrix()))
	if math.Abs(h[8]) < epsilon {
		return Homography{}, ErrDegenerate
	}
	return h.normalized(), nil
}

// similarity is the isotropic normalization x' = s·(x − c).
type similarity struct {
	cx, cy, s float64
}

func normalization(pts []Point) (similarity, bool) {
	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	n := float64(len(pts))
	cx /= n
	cy /= n

	var mean float64
	for _, p := range pts {
		mean += math.Hypot(p.X-cx, p.Y-cy)
	}
	mean /= n
	if mean < epsilon {
		return similarity{}, false
	}
	return similarity{cx: cx, cy: cy, s: math.Sqrt2 / mean}, true
}

func (t similarity) apply(p Point) Point {
	return Point{X: t.s * (p.X - t.cx), Y: t.s * (p.Y - t.cy)}
}

func (t similarity) matrix() Homography {
	return Homography{t.s, 0, -t.s * t.cx, 0, t.s, -t.s * t.cy, 0, 0, 1}
}

func (t similarity) inverse() Homography {
	return Homography{1 / t.s, 0, t.cx, 0, 1 / t.s, t.cy, 0, 0, 1}
}

func mul(a, b Homography) Homography {
	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[3*r+c] = a[3*r]*b[c] + a[3*r+1]*b[3+c] + a[3*r+2]*b[6+c]
		}
	}
	return out
}

// Collinear reports whether a, b and c lie on one line within tol, measured
// as twice the triangle area relative to the longest side.
func Collinear(a, b, c Point, tol float64) bool {
	area2 := math.Abs((b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X))
	side := math.Max(math.Hypot(b.X-a.X, b.Y-a.Y),
		math.Max(math.Hypot(c.X-a.X, c.Y-a.Y), math.Hypot(c.X-b.X, c.Y-b.Y)))
	if side < epsilon {
		return true
	}
	return area2/side <= tol
}

// Degenerate reports whether pts contains a repeated point or three collinear
// points, either of which makes a minimal homography sample ill-posed.
func Degenerate(pts []Point, tol float64) bool {
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			if math.Hypot(pts[i].X-pts[j].X, pts[i].Y-pts[j].Y) <= tol {
				return true
			}
			for k := j + 1; k < len(pts); k++ {
				if Collinear(pts[i], pts[j], pts[k], tol) {
					return true
				}
			}
		}
	}
	return false
}
