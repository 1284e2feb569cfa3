package main

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/hupe1980/vismatch/internal/imgproc"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type grayImage struct {
	Pixels []byte
	Width  int
	Height int
}

// loadImage decodes path and converts it to 8-bit grayscale.
func loadImage(path string) (grayImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return grayImage{}, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return grayImage{}, fmt.Errorf("decode %s: %w", path, err)
	}

	g := imgproc.ToGray(img)
	return grayImage{
		Pixels: g.Pix,
		Width:  g.Rect.Dx(),
		Height: g.Rect.Dy(),
	}, nil
}
