package canvas

import (
	"errors"
	"fmt"
)

// Validation sentinels. Errors returned by Store wrap one of these, so
// callers can test with errors.Is.
var (
	ErrInvalidIndex    = errors.New("invalid tile index")
	ErrInvalidPosition = errors.New("invalid position")
)

// IndexError is returned when a tile index falls outside [0, NoTiles).
type IndexError struct {
	Index   uint32 // Requested tile index
	NoTiles uint32 // Number of tiles on the canvas
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: %d not in [0, %d)", ErrInvalidIndex, e.Index, e.NoTiles)
}

// Unwrap returns ErrInvalidIndex.
func (e *IndexError) Unwrap() error {
	return ErrInvalidIndex
}

// PositionError is returned when a position falls outside a tile.
type PositionError struct {
	Position Position
	TileSize uint32
}

// Error implements the error interface.
func (e *PositionError) Error() string {
	return fmt.Sprintf("%s: (%d, %d) outside %dx%d tile",
		ErrInvalidPosition, e.Position.X, e.Position.Y, e.TileSize, e.TileSize)
}

// Unwrap returns ErrInvalidPosition.
func (e *PositionError) Unwrap() error {
	return ErrInvalidPosition
}

// IsValidationError returns true if err was caused by out-of-range input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidIndex) || errors.Is(err, ErrInvalidPosition)
}
