package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tilecanvas/internal/canvas"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Second, cfg.Cooldown)
	assert.Equal(t, canvas.DefaultGeometry(), cfg.Geometry)
	assert.Equal(t, "X-Actor-ID", cfg.ActorHeader)
	assert.Empty(t, cfg.Journal)
	assert.False(t, cfg.AutoStart)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tilecanvas.yaml")
	content := `
addr: "127.0.0.1:9000"
cooldown: 5s
geometry:
  row_length: 8
journal: /tmp/edits.db
auto_start: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.Cooldown)
	assert.Equal(t, uint32(8), cfg.Geometry.RowLength)
	assert.Equal(t, uint32(canvas.TileSize), cfg.Geometry.TileSize, "unset keys keep defaults")
	assert.Equal(t, "/tmp/edits.db", cfg.Journal)
	assert.True(t, cfg.AutoStart)
	assert.Equal(t, DefaultActorHeader, cfg.ActorHeader)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestDecode_UnknownKey(t *testing.T) {
	cfg := Default()
	err := Decode([]byte("adress: :80\n"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "adress")
}

func TestDecode_EmptyDocument(t *testing.T) {
	cfg := Default()
	require.NoError(t, Decode(nil, &cfg))
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }, "addr"},
		{"zero cooldown", func(c *Config) { c.Cooldown = 0 }, "cooldown"},
		{"negative cooldown", func(c *Config) { c.Cooldown = -time.Second }, "cooldown"},
		{"empty header", func(c *Config) { c.ActorHeader = "" }, "actor_header"},
		{"bad geometry", func(c *Config) { c.Geometry.TileSize = 0 }, "geometry"},
		{"oversized geometry", func(c *Config) { c.Geometry.RowLength = 65536 }, "exceeds maximum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Journal = "edits.db"

	data, err := cfg.Marshal()
	require.NoError(t, err)

	var back Config
	require.NoError(t, Decode(data, &back))
	assert.Equal(t, cfg, back)
}
