// Package config loads server settings from defaults, an optional YAML file
// and command-line overrides, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tilecanvas/internal/canvas"
	"github.com/roach88/tilecanvas/internal/edits"
)

// Defaults.
const (
	DefaultAddr        = ":8080"
	DefaultActorHeader = "X-Actor-ID"
)

// Config holds everything the serve command needs.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// Geometry fixes the canvas shape for the life of the process.
	Geometry canvas.Geometry `yaml:"geometry"`

	// Cooldown is the minimum gap between two edits by one actor.
	Cooldown time.Duration `yaml:"cooldown"`

	// ActorHeader names the request header carrying the verified actor id,
	// set by the authenticating proxy in front of the server.
	ActorHeader string `yaml:"actor_header"`

	// Journal is the path of the SQLite edit journal. Empty disables it.
	Journal string `yaml:"journal,omitempty"`

	// AutoStart opens the editing session at boot.
	AutoStart bool `yaml:"auto_start"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:        DefaultAddr,
		Geometry:    canvas.DefaultGeometry(),
		Cooldown:    edits.DefaultCooldown,
		ActorHeader: DefaultActorHeader,
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := Decode(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode overlays YAML data onto cfg and validates the result.
func Decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return cfg.Validate()
}

// Validate checks the configuration for values the server cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if err := c.Geometry.Validate(); err != nil {
		return fmt.Errorf("geometry: %w", err)
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("cooldown must be positive, got %s", c.Cooldown)
	}
	if c.ActorHeader == "" {
		return errors.New("actor_header must not be empty")
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
