package imgproc

import (
	"errors"
	"image"
	"image/draw"

	"github.com/tajtiattila/blur"
)

// ErrInvalidImage is returned for empty buffers or non-positive dimensions.
var ErrInvalidImage = errors.New("invalid image")

// smoothingRadius is the Gaussian radius applied to every pyramid level.
const smoothingRadius = 1

// FromPixels copies a row-major 8-bit buffer (stride == width) into a new Gray image.
func FromPixels(pixels []byte, width, height int) (*image.Gray, error) {
	if width <= 0 || height <= 0 || len(pixels) < width*height {
		return nil, ErrInvalidImage
	}
	g := image.NewGray(image.Rect(0, 0, width, height))
	copy(g.Pix, pixels[:width*height])
	return g, nil
}

// ToGray converts any image to a zero-origin Gray image.
// Gray images with zero origin and tight stride are returned as-is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) && g.Stride == g.Rect.Dx() {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}

// Smooth returns a Gaussian-smoothed copy of g.
func Smooth(g *image.Gray) *image.Gray {
	work := image.NewGray(g.Rect)
	copy(work.Pix, g.Pix)
	return ToGray(blur.Gaussian(work, smoothingRadius, blur.ReuseSrc))
}

// Downsample halves g in both dimensions by 2×2 averaging.
// Odd trailing rows/columns are dropped.
func Downsample(g *image.Gray) *image.Gray {
	w, h := g.Rect.Dx()/2, g.Rect.Dy()/2
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		r0 := g.Pix[(2*y)*g.Stride:]
		r1 := g.Pix[(2*y+1)*g.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			s := int(r0[2*x]) + int(r0[2*x+1]) + int(r1[2*x]) + int(r1[2*x+1])
			dst[x] = uint8((s + 2) >> 2)
		}
	}
	return out
}

// PixelMap returns the pixels of g keyed by their row-major offset y*w+x,
// the layout fast.FindCorners consumes.
func PixelMap(g *image.Gray) map[int]int {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := make(map[int]int, w*h)
	for y := range h {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for x, v := range row {
			out[y*w+x] = int(v)
		}
	}
	return out
}

// Harris returns the Harris corner response at (x, y) using Sobel gradients
// accumulated over a 5×5 window. (x, y) must be at least 3 pixels from every edge.
func Harris(g *image.Gray, x, y int) float32 {
	const k = 0.04
	var sxx, syy, sxy float64
	pix, stride := g.Pix, g.Stride
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			px, py := x+dx, y+dy
			o := py*stride + px
			gx := -int(pix[o-stride-1]) + int(pix[o-stride+1]) -
				2*int(pix[o-1]) + 2*int(pix[o+1]) -
				int(pix[o+stride-1]) + int(pix[o+stride+1])
			gy := -int(pix[o-stride-1]) - 2*int(pix[o-stride]) - int(pix[o-stride+1]) +
				int(pix[o+stride-1]) + 2*int(pix[o+stride]) + int(pix[o+stride+1])
			fx, fy := float64(gx), float64(gy)
			sxx += fx * fx
			syy += fy * fy
			sxy += fx * fy
		}
	}
	// Sobel gains 8 per axis; normalize so scores are comparable across images.
	const norm = 1.0 / (64.0 * 25.0)
	sxx *= norm
	syy *= norm
	sxy *= norm
	det := sxx*syy - sxy*sxy
	tr := sxx + syy
	return float32(det - k*tr*tr)
}
