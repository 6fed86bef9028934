package journal

import (
	"context"
	"fmt"
)

// Append records an applied write and returns it with ID and Seq filled in.
// If e.ID is empty an id is generated.
func (j *Journal) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = j.ids.Generate()
	}

	res, err := j.db.ExecContext(ctx, `
		INSERT INTO edits
		(id, actor, tile, x, y, r, g, b, a, at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		string(e.Actor),
		e.Tile,
		e.Pos.X,
		e.Pos.Y,
		e.Color.R,
		e.Color.G,
		e.Color.B,
		e.Color.A,
		e.AtNs,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("append edit: %w", err)
	}

	e.Seq, err = res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("append edit: last insert id: %w", err)
	}
	return e, nil
}
