package imgproc

import "image"

// Integral is a summed-area table over a Gray image.
//
// Sums are kept modulo 2^32; any box whose true sum fits in 32 bits is
// recovered exactly by the four-corner difference.
type Integral struct {
	width, height int
	sums          []uint32 // (width+1)*(height+1)
}

// NewIntegral builds the summed-area table of g.
func NewIntegral(g *image.Gray) *Integral {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	stride := w + 1
	sums := make([]uint32, stride*(h+1))
	for y := 0; y < h; y++ {
		var row uint32
		src := g.Pix[y*g.Stride:]
		for x := 0; x < w; x++ {
			row += uint32(src[x])
			sums[(y+1)*stride+x+1] = sums[y*stride+x+1] + row
		}
	}
	return &Integral{width: w, height: h, sums: sums}
}

// Width returns the width of the source image.
func (in *Integral) Width() int { return in.width }

// Height returns the height of the source image.
func (in *Integral) Height() int { return in.height }

// BoxMean returns the mean intensity of the square of half-size r centred at
// (x, y), clipped to the image.
func (in *Integral) BoxMean(x, y, r int) float32 {
	x0, y0 := max(x-r, 0), max(y-r, 0)
	x1, y1 := min(x+r+1, in.width), min(y+r+1, in.height)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	stride := in.width + 1
	s := in.sums[y1*stride+x1] - in.sums[y0*stride+x1] - in.sums[y1*stride+x0] + in.sums[y0*stride+x0]
	return float32(s) / float32((x1-x0)*(y1-y0))
}
