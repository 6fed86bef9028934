package journal

import (
	"github.com/roach88/tilecanvas/internal/canvas"
	"github.com/roach88/tilecanvas/internal/edits"
)

// Entry is one applied pixel write.
type Entry struct {
	Seq   int64           `json:"seq"`
	ID    string          `json:"id"`
	Actor edits.ActorID   `json:"actor"`
	Tile  uint32          `json:"tile"`
	Pos   canvas.Position `json:"position"`
	Color canvas.Color    `json:"color"`
	AtNs  int64           `json:"at_ns"`
}
