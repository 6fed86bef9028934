package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tilecanvas/internal/canvas"
	"github.com/roach88/tilecanvas/internal/config"
	"github.com/roach88/tilecanvas/internal/edits"
	"github.com/roach88/tilecanvas/internal/journal"
	"github.com/roach88/tilecanvas/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	ConfigPath  string
	Addr        string
	Journal     string
	ActorHeader string
	Cooldown    time.Duration
	AutoStart   bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the canvas over HTTP",
		Long: `Start the canvas server.

Tiles and the overview are served as PNG; pixel writes are admitted through
the per-actor cooldown. Canvas state lives in memory only and starts fully
transparent on every boot. With --journal, every applied write is also
appended to a SQLite audit log.

Flags override values from --config, which override the built-in defaults.

Example:
  tilecanvas serve
  tilecanvas serve --addr :9000 --journal ./edits.db --auto-start
  tilecanvas serve --config ./tilecanvas.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.Addr, "addr", config.DefaultAddr, "HTTP listen address")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite edit journal (disabled if empty)")
	cmd.Flags().StringVar(&opts.ActorHeader, "actor-header", config.DefaultActorHeader, "request header carrying the verified actor id")
	cmd.Flags().DurationVar(&opts.Cooldown, "cooldown", edits.DefaultCooldown, "minimum time between two edits by one actor")
	cmd.Flags().BoolVar(&opts.AutoStart, "auto-start", false, "open the editing session at boot")

	return cmd
}

// resolveConfig loads the config file and applies explicitly set flags.
func resolveConfig(opts *ServeOptions, cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = opts.Addr
	}
	if flags.Changed("journal") {
		cfg.Journal = opts.Journal
	}
	if flags.Changed("actor-header") {
		cfg.ActorHeader = opts.ActorHeader
	}
	if flags.Changed("cooldown") {
		cfg.Cooldown = opts.Cooldown
	}
	if flags.Changed("auto-start") {
		cfg.AutoStart = opts.AutoStart
	}
	return cfg, cfg.Validate()
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	store, err := canvas.New(cfg.Geometry, canvas.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create canvas", err)
	}
	gate := edits.NewGate(edits.WithCooldown(cfg.Cooldown))

	srvOpts := []server.Option{
		server.WithLogger(logger),
		server.WithActorHeader(cfg.ActorHeader),
	}
	if cfg.Journal != "" {
		slog.Info("opening journal", "path", cfg.Journal)
		j, err := journal.Open(cfg.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				slog.Error("error closing journal", "error", closeErr)
			}
		}()
		srvOpts = append(srvOpts, server.WithJournal(j))
	}

	srv := server.New(store, gate, srvOpts...)
	if cfg.AutoStart {
		if err := srv.Start(); err != nil {
			return WrapExitError(ExitFailure, "failed to start session", err)
		}
		slog.Info("editing session started")
	}

	// Setup signal handling for graceful shutdown
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("canvas ready",
		"tiles", cfg.Geometry.NoTiles(),
		"tile_size", cfg.Geometry.TileSize,
		"cooldown", cfg.Cooldown,
		"journal", cfg.Journal != "")
	fmt.Fprintf(cmd.OutOrStdout(), "Serving canvas on %s\n", cfg.Addr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := srv.ListenAndServe(ctx, cfg.Addr); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
