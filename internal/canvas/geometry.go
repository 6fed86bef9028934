package canvas

import "fmt"

// Default canvas geometry.
const (
	RowLength         = 16
	TileSize          = 64
	OverviewTileSize  = 16
	NoTiles           = RowLength * RowLength
	OverviewImageSize = RowLength * OverviewTileSize
)

// Upper bounds accepted by Validate. They keep every derived size within
// uint32 and the rasters within a few gigabytes.
const (
	MaxRowLength  = 1024
	MaxTileSize   = 4096
	MaxCanvasSide = 16384
)

// Geometry fixes the shape of a canvas. It is chosen once, at construction.
type Geometry struct {
	RowLength        uint32 `yaml:"row_length" json:"row_length"`
	TileSize         uint32 `yaml:"tile_size" json:"tile_size"`
	OverviewTileSize uint32 `yaml:"overview_tile_size" json:"overview_tile_size"`
}

// DefaultGeometry returns the standard 16×16 grid of 64px tiles.
func DefaultGeometry() Geometry {
	return Geometry{
		RowLength:        RowLength,
		TileSize:         TileSize,
		OverviewTileSize: OverviewTileSize,
	}
}

// NoTiles returns the number of tiles on the canvas.
func (g Geometry) NoTiles() uint32 {
	return g.RowLength * g.RowLength
}

// OverviewImageSize returns the side length of the mosaic in pixels.
func (g Geometry) OverviewImageSize() uint32 {
	return g.RowLength * g.OverviewTileSize
}

// Validate reports whether the geometry can back a canvas.
func (g Geometry) Validate() error {
	if g.RowLength == 0 {
		return fmt.Errorf("row length must be positive")
	}
	if g.TileSize == 0 {
		return fmt.Errorf("tile size must be positive")
	}
	if g.OverviewTileSize == 0 {
		return fmt.Errorf("overview tile size must be positive")
	}
	if g.OverviewTileSize > g.TileSize {
		return fmt.Errorf("overview tile size %d exceeds tile size %d", g.OverviewTileSize, g.TileSize)
	}
	if g.RowLength > MaxRowLength {
		return fmt.Errorf("row length %d exceeds maximum %d", g.RowLength, MaxRowLength)
	}
	if g.TileSize > MaxTileSize {
		return fmt.Errorf("tile size %d exceeds maximum %d", g.TileSize, MaxTileSize)
	}
	if side := uint64(g.RowLength) * uint64(g.TileSize); side > MaxCanvasSide {
		return fmt.Errorf("canvas side %d exceeds maximum %d", side, MaxCanvasSide)
	}
	return nil
}

// CheckIndex returns an *IndexError if tileIdx is off the canvas.
func (g Geometry) CheckIndex(tileIdx uint32) error {
	if n := g.NoTiles(); tileIdx >= n {
		return &IndexError{Index: tileIdx, NoTiles: n}
	}
	return nil
}

// CheckPixel validates a tile index, then a position within that tile.
func (g Geometry) CheckPixel(tileIdx uint32, pos Position) error {
	if err := g.CheckIndex(tileIdx); err != nil {
		return err
	}
	if pos.X >= g.TileSize || pos.Y >= g.TileSize {
		return &PositionError{Position: pos, TileSize: g.TileSize}
	}
	return nil
}

// TileOffset returns the pixel offset of a tile's region inside the mosaic.
// The index is assumed valid.
func (g Geometry) TileOffset(tileIdx uint32) (x, y int) {
	col := tileIdx % g.RowLength
	row := tileIdx / g.RowLength
	return int(col * g.OverviewTileSize), int(row * g.OverviewTileSize)
}

// TileIndex returns the row-major index of the tile at (col, row).
func (g Geometry) TileIndex(col, row uint32) uint32 {
	return row*g.RowLength + col
}

// Locate maps an absolute canvas pixel to its tile index and local position.
// ok is false if the pixel lies outside the canvas.
func (g Geometry) Locate(x, y uint32) (tileIdx uint32, pos Position, ok bool) {
	side := g.RowLength * g.TileSize
	if x >= side || y >= side {
		return 0, Position{}, false
	}
	col, row := x/g.TileSize, y/g.TileSize
	return g.TileIndex(col, row), Position{X: x % g.TileSize, Y: y % g.TileSize}, true
}
