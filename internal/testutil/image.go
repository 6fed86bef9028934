package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

// DecodePNG decodes data as a PNG or fails the test.
func DecodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err, "cached bytes must decode as PNG")
	return img
}

// NRGBAAt returns the pixel at (x, y) as a non-premultiplied color.
func NRGBAAt(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

// RequireUniform fails the test unless every pixel of img equals want.
func RequireUniform(t *testing.T, img image.Image, want color.NRGBA) {
	t.Helper()
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if got := NRGBAAt(img, x, y); got != want {
				require.Failf(t, "non-uniform image", "pixel (%d, %d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

// RegionEqual reports whether the size × size blocks at (x, y) in a and b
// hold identical pixels.
func RegionEqual(a, b image.Image, x, y, size int) bool {
	for dy := 0; dy < size; dy++ {
		for dx := 0; dx < size; dx++ {
			if NRGBAAt(a, x+dx, y+dy) != NRGBAAt(b, x+dx, y+dy) {
				return false
			}
		}
	}
	return true
}
