package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, renderer.BackendTypeWGPU, c.BackendType())
	assert.Len(t, c.RendererOptions(), 8)
	assert.Len(t, c.WindowOptions(), 2)
	assert.Len(t, c.FrameworkOptions(), 3)
	assert.Len(t, c.StreamerOptions(), 2)
	assert.Len(t, c.LoaderOptions(), 1)
	assert.Len(t, c.ProfilerOptions(nil), 1)

	level, err := c.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
[renderer]
backend = "headless"
mode = "single"
msaa = 4

[engine]
max_frames = 120
clear_color = [0.0, 0.5, 1.0, 1.0]

[profiler]
stats_addr = "127.0.0.1:8090"

[log]
level = "debug"
`))
	require.NoError(t, err)
	assert.Equal(t, renderer.BackendTypeHeadless, c.BackendType())
	assert.Equal(t, "single", c.Renderer.Mode)
	assert.Equal(t, 4, c.Renderer.MSAA)
	assert.Equal(t, 3, c.Renderer.BufferCount, "untouched keys keep their default")
	assert.Equal(t, uint64(120), c.Engine.MaxFrames)
	assert.Equal(t, [4]float64{0, 0.5, 1, 1}, c.Engine.ClearColor)
	assert.Equal(t, "127.0.0.1:8090", c.Profiler.StatsAddr)
	assert.Equal(t, "oxy-rt", c.Window.Title)

	level, err := c.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("[renderer]\nbakend = \"wgpu\"\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseRejectsMalformedToml(t *testing.T) {
	_, err := Parse([]byte("[renderer\n"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalid))
}

func TestValidateReportsEveryProblem(t *testing.T) {
	c := Default()
	c.Renderer.Backend = "vulkan"
	c.Renderer.BufferCount = 1
	c.Renderer.MSAA = 3
	c.Window.Width = 0
	c.Engine.ClearColor[0] = 2
	c.Shader.HotReload = true
	c.Log.Level = "loud"

	err := c.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	for _, want := range []string{"renderer.backend", "buffer_count", "msaa", "window size", "clear_color[0]", "shader.hot_reload", "log.level"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadAndEncodeRoundTrip(t *testing.T) {
	c := Default()
	c.Window.Title = "round trip"
	c.Renderer.Mode = "single"
	data, err := c.Encode()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "oxyrt.toml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
