package imgproc

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPixels(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		pix := []byte{1, 2, 3, 4, 5, 6}
		g, err := FromPixels(pix, 3, 2)
		require.NoError(t, err)
		assert.Equal(t, 3, g.Rect.Dx())
		assert.Equal(t, 2, g.Rect.Dy())
		assert.Equal(t, uint8(6), g.GrayAt(2, 1).Y)

		// The image owns its own copy.
		pix[0] = 99
		assert.Equal(t, uint8(1), g.GrayAt(0, 0).Y)
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := FromPixels(nil, 3, 2)
		assert.ErrorIs(t, err, ErrInvalidImage)
		_, err = FromPixels(make([]byte, 6), 0, 2)
		assert.ErrorIs(t, err, ErrInvalidImage)
		_, err = FromPixels(make([]byte, 6), 3, -1)
		assert.ErrorIs(t, err, ErrInvalidImage)
		_, err = FromPixels(make([]byte, 5), 3, 2)
		assert.ErrorIs(t, err, ErrInvalidImage)
	})
}

func TestDownsample(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 4, 3))
	for i := range g.Pix {
		g.Pix[i] = 100
	}
	g.SetGray(0, 0, grayOf(0))

	d := Downsample(g)
	assert.Equal(t, 2, d.Rect.Dx())
	assert.Equal(t, 1, d.Rect.Dy())
	assert.Equal(t, uint8(75), d.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(100), d.GrayAt(1, 0).Y)
}

func TestIntegralBoxMean(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 5, 5))
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			g.SetGray(x, y, grayOf(uint8(10*x)))
		}
	}
	in := NewIntegral(g)

	assert.InDelta(t, 20, in.BoxMean(2, 2, 1), 1e-4)
	assert.InDelta(t, 20, in.BoxMean(2, 2, 2), 1e-4)
	assert.InDelta(t, 40, in.BoxMean(4, 4, 0), 1e-4)
	// Clipped at the left edge: columns 0 and 1.
	assert.InDelta(t, 5, in.BoxMean(0, 2, 1), 1e-4)
}

func TestHarrisRespondsToCorners(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 20, 20))
	for y := 10; y < 20; y++ {
		for x := 10; x < 20; x++ {
			g.SetGray(x, y, grayOf(200))
		}
	}

	corner := Harris(g, 10, 10)
	edge := Harris(g, 15, 10)
	flat := Harris(g, 4, 4)

	assert.Greater(t, corner, float32(0))
	assert.Less(t, edge, corner)
	assert.InDelta(t, 0, flat, 1e-6)
}

func TestSmoothPreservesInput(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 8, 8))
	g.SetGray(4, 4, grayOf(255))

	s := Smooth(g)
	assert.Equal(t, g.Rect, s.Rect)
	assert.Equal(t, uint8(255), g.GrayAt(4, 4).Y)
	assert.Equal(t, Smooth(g).Pix, s.Pix, "smoothing must be deterministic")
}

func TestPixelMap(t *testing.T) {
	g, err := FromPixels([]byte{1, 2, 3, 4, 5, 6}, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 1, 1: 2, 2: 3, 3: 4, 4: 5, 5: 6}, PixelMap(g))

	// Sub-images are keyed relative to their own origin.
	sub := g.SubImage(image.Rect(1, 0, 3, 2)).(*image.Gray)
	assert.Equal(t, map[int]int{0: 2, 1: 3, 2: 5, 3: 6}, PixelMap(sub))
}

func grayOf(v uint8) color.Gray { return color.Gray{Y: v} }
