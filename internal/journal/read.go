package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tilecanvas/internal/edits"
)

const selectColumns = `SELECT seq, id, actor, tile, x, y, r, g, b, a, at_ns FROM edits`

// Recent returns up to limit most recent entries, oldest first.
//
// Returns an empty slice (not nil) if the journal is empty.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT * FROM (`+selectColumns+` ORDER BY seq DESC LIMIT ?)
		ORDER BY seq ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent edits: %w", err)
	}
	return scanEntries(rows)
}

// ByActor returns every entry for actor, oldest first.
func (j *Journal) ByActor(ctx context.Context, actor edits.ActorID) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, selectColumns+`
		WHERE actor = ?
		ORDER BY seq ASC
	`, string(actor))
	if err != nil {
		return nil, fmt.Errorf("query edits by actor: %w", err)
	}
	return scanEntries(rows)
}

// ByTile returns every entry for a tile, oldest first.
func (j *Journal) ByTile(ctx context.Context, tile uint32) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, selectColumns+`
		WHERE tile = ?
		ORDER BY seq ASC
	`, tile)
	if err != nil {
		return nil, fmt.Errorf("query edits by tile: %w", err)
	}
	return scanEntries(rows)
}

// Count returns the number of entries.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edits`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count edits: %w", err)
	}
	return n, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e     Entry
			actor string
		)
		if err := rows.Scan(
			&e.Seq, &e.ID, &actor, &e.Tile,
			&e.Pos.X, &e.Pos.Y,
			&e.Color.R, &e.Color.G, &e.Color.B, &e.Color.A,
			&e.AtNs,
		); err != nil {
			return nil, fmt.Errorf("scan edit: %w", err)
		}
		e.Actor = edits.ActorID(actor)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edits: %w", err)
	}
	return entries, nil
}
