package testutil

import "math"

// Warp renders src (width×height, row-major) through a similarity transform:
// rotation by angle radians and scaling by scale about the image centre,
// followed by a translation of (tx, ty) pixels. The output has the same size
// as src. Samples are bilinear; locations outside src replicate its border.
func Warp(src []byte, width, height int, angle, scale, tx, ty float64) []byte {
	cx, cy := float64(width-1)/2, float64(height-1)/2
	sin, cos := math.Sincos(-angle)

	dst := make([]byte, width*height)
	for y := range height {
		for x := range width {
			// Inverse map the destination pixel into src.
			dx := (float64(x) - cx - tx) / scale
			dy := (float64(y) - cy - ty) / scale
			sx := cos*dx - sin*dy + cx
			sy := sin*dx + cos*dy + cy
			dst[y*width+x] = bilinear(src, width, height, sx, sy)
		}
	}
	return dst
}

// WarpPoint maps (x, y) through the transform Warp applies.
func WarpPoint(x, y float64, width, height int, angle, scale, tx, ty float64) (float64, float64) {
	cx, cy := float64(width-1)/2, float64(height-1)/2
	sin, cos := math.Sincos(angle)
	dx, dy := (x-cx)*scale, (y-cy)*scale
	return cos*dx - sin*dy + cx + tx, sin*dx + cos*dy + cy + ty
}

func bilinear(src []byte, width, height int, x, y float64) byte {
	x = min(max(x, 0), float64(width-1))
	y = min(max(y, 0), float64(height-1))
	x0, y0 := int(x), int(y)
	x1, y1 := min(x0+1, width-1), min(y0+1, height-1)
	fx, fy := x-float64(x0), y-float64(y0)

	at := func(px, py int) float64 { return float64(src[py*width+px]) }
	top := at(x0, y0)*(1-fx) + at(x1, y0)*fx
	bottom := at(x0, y1)*(1-fx) + at(x1, y1)*fx
	return byte(math.Round(top*(1-fy) + bottom*fy))
}
