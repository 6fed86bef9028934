package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tilecanvas/internal/canvas"
	"github.com/roach88/tilecanvas/internal/config"
)

// ConfigOptions holds flags for the config command.
type ConfigOptions struct {
	*RootOptions
	ConfigPath string
}

// ConfigView is the JSON rendering of the effective configuration.
type ConfigView struct {
	Addr        string          `json:"addr"`
	Geometry    canvas.Geometry `json:"geometry"`
	Cooldown    string          `json:"cooldown"`
	ActorHeader string          `json:"actor_header"`
	Journal     string          `json:"journal,omitempty"`
	AutoStart   bool            `json:"auto_start"`
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfigOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Load the configuration (defaults overlaid with an optional YAML file),
validate it and print the result. Text output is YAML and can be used as a
starting config file.

Example:
  tilecanvas config > tilecanvas.yaml
  tilecanvas config --config ./tilecanvas.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	return cmd
}

func runConfig(opts *ConfigOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	view := ConfigView{
		Addr:        cfg.Addr,
		Geometry:    cfg.Geometry,
		Cooldown:    cfg.Cooldown.String(),
		ActorHeader: cfg.ActorHeader,
		Journal:     cfg.Journal,
		AutoStart:   cfg.AutoStart,
	}

	return formatter(opts.RootOptions, cmd).Emit(view, func(w io.Writer) error {
		data, err := cfg.Marshal()
		if err != nil {
			return WrapExitError(ExitFailure, "failed to render config", err)
		}
		_, err = w.Write(data)
		return err
	})
}
