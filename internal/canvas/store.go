package canvas

import (
	"fmt"
	"image"
	"log/slog"
)

// Store owns the tile rasters, the overview mosaic and their cached PNG
// encodings.
//
// Thread-safety: Store is not safe for concurrent mutation. At most one
// UpdatePixel may run at a time; see package docs.
type Store struct {
	geom   Geometry
	logger *slog.Logger
	enc    Encoder

	rawTiles    []*image.NRGBA
	rawOverview *image.NRGBA

	tileImages    [][]byte
	overviewImage []byte
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEncoder replaces the PNG encoder. The encoder must be deterministic
// and lossless; a failing encoder makes UpdatePixel roll back.
func WithEncoder(e Encoder) Option {
	return func(s *Store) {
		if e != nil {
			s.enc = e
		}
	}
}

// New creates a store with every tile and the overview fully transparent,
// and both caches pre-encoded.
func New(geom Geometry, opts ...Option) (*Store, error) {
	if err := geom.Validate(); err != nil {
		return nil, fmt.Errorf("new canvas: %w", err)
	}

	s := &Store{
		geom:   geom,
		logger: slog.Default(),
		enc:    newEncoder(),
	}
	for _, opt := range opts {
		opt(s)
	}

	n := geom.NoTiles()
	ts := int(geom.TileSize)
	s.rawTiles = make([]*image.NRGBA, n)
	s.tileImages = make([][]byte, n)

	// All tiles start out identical and share one encoding. Cached buffers
	// are only ever replaced, never written to.
	blank, err := encodePNG(s.enc, image.NewNRGBA(image.Rect(0, 0, ts, ts)))
	if err != nil {
		return nil, fmt.Errorf("new canvas: tile: %w", err)
	}
	for i := range s.rawTiles {
		s.rawTiles[i] = image.NewNRGBA(image.Rect(0, 0, ts, ts))
		s.tileImages[i] = blank
	}

	ovs := int(geom.OverviewImageSize())
	s.rawOverview = image.NewNRGBA(image.Rect(0, 0, ovs, ovs))
	s.overviewImage, err = encodePNG(s.enc, s.rawOverview)
	if err != nil {
		return nil, fmt.Errorf("new canvas: overview: %w", err)
	}

	s.logger.Debug("canvas initialized",
		"tiles", n,
		"tile_size", geom.TileSize,
		"overview_size", ovs)
	return s, nil
}

// MustNew is like New but panics on an invalid geometry.
// Intended for tests and compile-time constant geometries.
func MustNew(geom Geometry, opts ...Option) *Store {
	s, err := New(geom, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Geometry returns the canvas geometry.
func (s *Store) Geometry() Geometry {
	return s.geom
}

// FetchTile returns the cached PNG encoding of a tile.
// The returned slice must not be modified.
func (s *Store) FetchTile(tileIdx uint32) ([]byte, error) {
	if err := s.geom.CheckIndex(tileIdx); err != nil {
		return nil, err
	}
	return s.tileImages[tileIdx], nil
}

// FetchOverview returns the cached PNG encoding of the mosaic.
// The returned slice must not be modified.
func (s *Store) FetchOverview() []byte {
	return s.overviewImage
}

// UpdatePixel writes c at pos in the given tile, refreshes the tile's region
// of the mosaic and re-encodes both.
//
// Invalid input is rejected before anything is touched. On success the
// raster and both caches are consistent; on failure nothing has changed.
func (s *Store) UpdatePixel(tileIdx uint32, pos Position, c Color) error {
	if err := s.geom.CheckPixel(tileIdx, pos); err != nil {
		return err
	}

	tile := s.rawTiles[tileIdx]
	x, y := int(pos.X), int(pos.Y)
	prev := tile.NRGBAAt(x, y)
	tile.SetNRGBA(x, y, c.NRGBA())

	ox, oy := s.geom.TileOffset(tileIdx)
	ots := int(s.geom.OverviewTileSize)
	prevRegion := copyRegion(s.rawOverview, ox, oy, ots)

	replaceRegion(s.rawOverview, downsample(tile, ots), ox, oy)

	tileBytes, err := encodePNG(s.enc, tile)
	if err == nil {
		var overviewBytes []byte
		overviewBytes, err = encodePNG(s.enc, s.rawOverview)
		if err == nil {
			s.tileImages[tileIdx] = tileBytes
			s.overviewImage = overviewBytes
			return nil
		}
	}

	// Roll back so the rasters still match the cached bytes.
	tile.SetNRGBA(x, y, prev)
	replaceRegion(s.rawOverview, prevRegion, ox, oy)
	s.logger.Error("canvas encode failed, write rolled back",
		"tile", tileIdx, "x", pos.X, "y", pos.Y, "error", err)
	return fmt.Errorf("update pixel: %w", err)
}

// copyRegion returns a standalone copy of the size × size block of src
// whose top-left corner is (x, y).
func copyRegion(src *image.NRGBA, x, y, size int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, size, size))
	w := size * 4
	for row := 0; row < size; row++ {
		so := src.PixOffset(x, y+row)
		copy(out.Pix[row*out.Stride:row*out.Stride+w], src.Pix[so:so+w])
	}
	return out
}
