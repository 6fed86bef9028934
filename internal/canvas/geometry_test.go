package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGeometry(t *testing.T) {
	g := DefaultGeometry()
	require.NoError(t, g.Validate())
	assert.Equal(t, uint32(NoTiles), g.NoTiles())
	assert.Equal(t, uint32(OverviewImageSize), g.OverviewImageSize())
	assert.Equal(t, uint32(RowLength*RowLength), g.NoTiles())
}

func TestGeometry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		geom    Geometry
		wantErr string
	}{
		{"zero row length", Geometry{RowLength: 0, TileSize: 8, OverviewTileSize: 2}, "row length"},
		{"zero tile size", Geometry{RowLength: 2, TileSize: 0, OverviewTileSize: 2}, "tile size"},
		{"zero overview tile", Geometry{RowLength: 2, TileSize: 8, OverviewTileSize: 0}, "overview tile size"},
		{"overview larger than tile", Geometry{RowLength: 2, TileSize: 8, OverviewTileSize: 9}, "exceeds"},
		{"overview equals tile", Geometry{RowLength: 2, TileSize: 8, OverviewTileSize: 8}, ""},
		{"row length wraps tile count", Geometry{RowLength: 65536, TileSize: 1, OverviewTileSize: 1}, "row length 65536 exceeds maximum"},
		{"canvas side wraps", Geometry{RowLength: 65536, TileSize: 65536, OverviewTileSize: 1}, "row length"},
		{"tile too large", Geometry{RowLength: 1, TileSize: 8192, OverviewTileSize: 1}, "tile size 8192 exceeds maximum"},
		{"canvas too large", Geometry{RowLength: 1024, TileSize: 64, OverviewTileSize: 16}, "canvas side 65536 exceeds maximum"},
		{"largest row length", Geometry{RowLength: MaxRowLength, TileSize: 16, OverviewTileSize: 1}, ""},
		{"largest canvas", Geometry{RowLength: 4, TileSize: MaxTileSize, OverviewTileSize: 16}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.geom.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGeometry_TileOffset(t *testing.T) {
	g := DefaultGeometry()

	tests := []struct {
		idx    uint32
		wantX  int
		wantY  int
	}{
		{0, 0, 0},
		{1, OverviewTileSize, 0},
		{RowLength - 1, (RowLength - 1) * OverviewTileSize, 0},
		{RowLength, 0, OverviewTileSize},
		{RowLength + 3, 3 * OverviewTileSize, OverviewTileSize},
		{NoTiles - 1, (RowLength - 1) * OverviewTileSize, (RowLength - 1) * OverviewTileSize},
	}

	for _, tt := range tests {
		x, y := g.TileOffset(tt.idx)
		assert.Equal(t, tt.wantX, x, "tile %d x", tt.idx)
		assert.Equal(t, tt.wantY, y, "tile %d y", tt.idx)
	}
}

func TestGeometry_Locate(t *testing.T) {
	g := DefaultGeometry()

	idx, pos, ok := g.Locate(0, 0)
	require.True(t, ok)
	assert.Equal(t, uint32(0), idx)
	assert.Equal(t, Position{}, pos)

	idx, pos, ok = g.Locate(TileSize+3, 2*TileSize+7)
	require.True(t, ok)
	assert.Equal(t, g.TileIndex(1, 2), idx)
	assert.Equal(t, Position{X: 3, Y: 7}, pos)

	idx, pos, ok = g.Locate(RowLength*TileSize-1, RowLength*TileSize-1)
	require.True(t, ok)
	assert.Equal(t, uint32(NoTiles-1), idx)
	assert.Equal(t, Position{X: TileSize - 1, Y: TileSize - 1}, pos)

	_, _, ok = g.Locate(RowLength*TileSize, 0)
	assert.False(t, ok)
	_, _, ok = g.Locate(0, RowLength*TileSize)
	assert.False(t, ok)
}

func TestGeometry_CheckPixel(t *testing.T) {
	g := Geometry{RowLength: 2, TileSize: 8, OverviewTileSize: 2}

	assert.NoError(t, g.CheckIndex(3))
	assert.NoError(t, g.CheckPixel(3, Position{X: 7, Y: 7}))

	err := g.CheckIndex(4)
	assert.ErrorIs(t, err, ErrInvalidIndex)

	err = g.CheckPixel(0, Position{X: 8, Y: 0})
	assert.ErrorIs(t, err, ErrInvalidPosition)
	var posErr *PositionError
	require.ErrorAs(t, err, &posErr)
	assert.Equal(t, uint32(8), posErr.TileSize)

	// Index wins when both are out of range.
	err = g.CheckPixel(4, Position{X: 8, Y: 8})
	assert.ErrorIs(t, err, ErrInvalidIndex)
	assert.True(t, IsValidationError(err))
}
