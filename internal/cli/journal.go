package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tilecanvas/internal/edits"
	"github.com/roach88/tilecanvas/internal/journal"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	Limit    int
	Actor    string
	Tile     int64 // negative means unset
}

// JournalResult is the output of the journal command.
type JournalResult struct {
	Total   int64           `json:"total"`
	Entries []journal.Entry `json:"entries"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recorded pixel writes",
		Long: `List pixel writes recorded in an edit journal, oldest first.

Without filters the most recent --limit entries are shown. --actor and
--tile select every entry for that actor or tile.

Examples:
  tilecanvas journal --db ./edits.db
  tilecanvas journal --db ./edits.db --actor alice
  tilecanvas journal --db ./edits.db --tile 17 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite edit journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "number of recent entries to show")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "show entries for one actor")
	cmd.Flags().Int64Var(&opts.Tile, "tile", -1, "show entries for one tile")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Actor != "" && opts.Tile >= 0 {
		return NewExitError(ExitCommandError, "--actor and --tile are mutually exclusive")
	}
	if opts.Limit <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--limit must be positive, got %d", opts.Limit))
	}

	// Reading must not create an empty journal as a side effect.
	if _, err := os.Stat(opts.Database); errors.Is(err, fs.ErrNotExist) {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}

	out := formatter(opts.RootOptions, cmd)
	out.VerboseLog("opening journal %s", opts.Database)
	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	entries, err := queryJournal(ctx, j, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	total, err := j.Count(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count journal", err)
	}

	result := JournalResult{Total: total, Entries: entries}
	return out.Emit(result, func(w io.Writer) error {
		return writeJournalText(w, result)
	})
}

func queryJournal(ctx context.Context, j *journal.Journal, opts *JournalOptions) ([]journal.Entry, error) {
	switch {
	case opts.Actor != "":
		actor, ok := edits.ParseActorID(opts.Actor)
		if !ok {
			return nil, fmt.Errorf("invalid actor %q", opts.Actor)
		}
		return j.ByActor(ctx, actor)
	case opts.Tile >= 0:
		if opts.Tile > int64(^uint32(0)) {
			return nil, fmt.Errorf("tile %d out of range", opts.Tile)
		}
		return j.ByTile(ctx, uint32(opts.Tile))
	default:
		return j.Recent(ctx, opts.Limit)
	}
}

func writeJournalText(w io.Writer, result JournalResult) error {
	if len(result.Entries) == 0 {
		_, err := fmt.Fprintln(w, "No edits recorded.")
		return err
	}

	for _, e := range result.Entries {
		at := time.Unix(0, e.AtNs).UTC().Format(time.RFC3339Nano)
		_, err := fmt.Fprintf(w, "%6d  %s  %-12s tile=%-4d x=%-3d y=%-3d %s  %s\n",
			e.Seq, at, e.Actor, e.Tile, e.Pos.X, e.Pos.Y, e.Color.Hex(), e.ID)
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%d of %d edits\n", len(result.Entries), result.Total)
	return err
}
