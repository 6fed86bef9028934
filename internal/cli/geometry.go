package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tilecanvas/internal/config"
)

// GeometryOptions holds flags for the geometry command.
type GeometryOptions struct {
	*RootOptions
	ConfigPath string
}

// GeometryInfo is the output of the geometry command.
type GeometryInfo struct {
	RowLength         uint32 `json:"row_length"`
	TileSize          uint32 `json:"tile_size"`
	OverviewTileSize  uint32 `json:"overview_tile_size"`
	NoTiles           uint32 `json:"no_tiles"`
	OverviewImageSize uint32 `json:"overview_image_size"`
	CanvasSize        uint32 `json:"canvas_size"`
	CooldownSeconds   int64  `json:"cooldown_seconds"`
}

// NewGeometryCommand creates the geometry command.
func NewGeometryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GeometryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "geometry",
		Short: "Show canvas geometry",
		Long: `Show the canvas geometry and edit cooldown the server would run with.

Example:
  tilecanvas geometry
  tilecanvas geometry --config ./tilecanvas.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGeometry(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	return cmd
}

func runGeometry(opts *GeometryOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	g := cfg.Geometry
	info := GeometryInfo{
		RowLength:         g.RowLength,
		TileSize:          g.TileSize,
		OverviewTileSize:  g.OverviewTileSize,
		NoTiles:           g.NoTiles(),
		OverviewImageSize: g.OverviewImageSize(),
		CanvasSize:        g.RowLength * g.TileSize,
		CooldownSeconds:   int64(cfg.Cooldown.Seconds()),
	}

	return formatter(opts.RootOptions, cmd).Emit(info, func(w io.Writer) error {
		return writeGeometryText(w, info, cfg.Cooldown.String())
	})
}

func writeGeometryText(w io.Writer, info GeometryInfo, cooldown string) error {
	rows := []struct {
		label string
		value string
	}{
		{"tiles", fmt.Sprintf("%d x %d (%d)", info.RowLength, info.RowLength, info.NoTiles)},
		{"tile size", fmt.Sprintf("%dpx", info.TileSize)},
		{"canvas size", fmt.Sprintf("%dpx", info.CanvasSize)},
		{"overview tile", fmt.Sprintf("%dpx", info.OverviewTileSize)},
		{"overview size", fmt.Sprintf("%dpx", info.OverviewImageSize)},
		{"cooldown", cooldown},
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%-14s %s\n", r.label+":", r.value); err != nil {
			return err
		}
	}
	return nil
}
