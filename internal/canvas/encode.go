package canvas

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"sync"

	"golang.org/x/image/draw"
)

// Domain prefixes for content digests of cached encodings.
const (
	DomainTile     = "tilecanvas/tile/v1"
	DomainOverview = "tilecanvas/overview/v1"
)

// encoderPool recycles PNG encoder scratch buffers across writes.
type encoderPool struct {
	pool sync.Pool
}

func (p *encoderPool) Get() *png.EncoderBuffer {
	b, _ := p.pool.Get().(*png.EncoderBuffer)
	return b
}

func (p *encoderPool) Put(b *png.EncoderBuffer) {
	p.pool.Put(b)
}

// newEncoder returns the PNG encoder used for every cached image.
// Compression level is part of the byte-level output and must not vary.
func newEncoder() *png.Encoder {
	return &png.Encoder{
		CompressionLevel: png.DefaultCompression,
		BufferPool:       &encoderPool{},
	}
}

// Encoder writes the cached encoding of a raster. *png.Encoder implements it.
type Encoder interface {
	Encode(w io.Writer, m image.Image) error
}

// encodePNG losslessly encodes img into a fresh buffer.
func encodePNG(enc Encoder, img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// gaussian is the overview resampling filter: sigma 0.5 with a support of
// three, widened by the scale factor when shrinking. Weights are all
// positive, so a downsampled region never leaves its tile's channel range.
var gaussian = &draw.Kernel{
	Support: 3,
	At: func(t float64) float64 {
		return math.Exp(-t * t / (2 * 0.5 * 0.5))
	},
}

// downsample scales a full tile into a size × size region with the
// Src operator: the result replaces, never blends. A tile that is already
// size × size is copied as is.
func downsample(tile *image.NRGBA, size int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	if tile.Rect.Dx() == size && tile.Rect.Dy() == size {
		replaceRegion(dst, tile, 0, 0)
		return dst
	}
	gaussian.Scale(dst, dst.Bounds(), tile, tile.Bounds(), draw.Src, nil)
	return dst
}

// replaceRegion copies src into dst with its top-left corner at (x, y).
// Pixels are copied verbatim row by row.
func replaceRegion(dst *image.NRGBA, src *image.NRGBA, x, y int) {
	w := src.Rect.Dx() * 4
	for row := 0; row < src.Rect.Dy(); row++ {
		so := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+row)
		do := dst.PixOffset(x, y+row)
		copy(dst.Pix[do:do+w], src.Pix[so:so+w])
	}
}

// Digest computes a content digest of encoded bytes with domain separation.
// Format: hex(SHA256(domain + 0x00 + data)).
func Digest(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
