package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometry_Default(t *testing.T) {
	out, _, err := execute(t, "geometry")
	require.NoError(t, err)
	assertGolden(t, "geometry_default", out)
}

func TestGeometry_DefaultJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "geometry")
	require.NoError(t, err)
	assertGolden(t, "geometry_default_json", out)
}

func TestGeometry_FromConfig(t *testing.T) {
	path := writeFile(t, "tilecanvas.yaml", `
cooldown: 45s
geometry:
  row_length: 4
  tile_size: 8
  overview_tile_size: 2
`)

	out, _, err := execute(t, "geometry", "--config", path)
	require.NoError(t, err)
	assertGolden(t, "geometry_custom", out)
}

func TestGeometry_InvalidConfig(t *testing.T) {
	path := writeFile(t, "tilecanvas.yaml", "geometry:\n  tile_size: 0\n")

	_, _, err := execute(t, "geometry", "--config", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestGeometry_RejectsArgs(t *testing.T) {
	_, _, err := execute(t, "geometry", "extra")
	require.Error(t, err)
}
