// Package config holds the runtime settings of oxy-rt. Settings start from Default, may be
// overridden by a TOML file and are turned into the builder options of each engine package.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the complete set of runtime settings.
type Config struct {
	Renderer RendererConfig `toml:"renderer"`
	Window   WindowConfig   `toml:"window"`
	Engine   EngineConfig   `toml:"engine"`
	Loader   LoaderConfig   `toml:"loader"`
	Profiler ProfilerConfig `toml:"profiler"`
	Shader   ShaderConfig   `toml:"shader"`
	Log      LogConfig      `toml:"log"`
}

// RendererConfig selects the device and sizes the command queue and transient arenas.
type RendererConfig struct {
	// Backend is "wgpu" or "headless".
	Backend string `toml:"backend"`

	// Mode is "threaded" or "single".
	Mode string `toml:"mode"`

	BufferCount     int `toml:"buffer_count"`
	BufferSizeMB    int `toml:"buffer_size_mb"`
	ConstantArenaKB int `toml:"constant_arena_kb"`
	VertexArenaKB   int `toml:"vertex_arena_kb"`
	IndexArenaKB    int `toml:"index_arena_kb"`

	// PresentMode is "vsync" or "uncapped".
	PresentMode string `toml:"present_mode"`

	// MSAA is the sample count: 1, 4, 8 or 16.
	MSAA int `toml:"msaa"`

	ThreadChecks     bool `toml:"thread_checks"`
	SoftwareRenderer bool `toml:"software_renderer"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// EngineConfig controls the frame loop.
type EngineConfig struct {
	// FrameLimit caps the frame rate; zero is uncapped.
	FrameLimit float64 `toml:"frame_limit"`

	// MaxFrames stops the loop after that many frames; zero runs until the window closes.
	MaxFrames uint64 `toml:"max_frames"`

	ClearColor [4]float64 `toml:"clear_color"`
}

type LoaderConfig struct {
	Workers     int `toml:"workers"`
	QueueSize   int `toml:"queue_size"`
	Parallelism int `toml:"parallelism"`
}

// ProfilerConfig enables frame statistics. StatsAddr starts the websocket stats server when
// set.
type ProfilerConfig struct {
	Enabled    bool   `toml:"enabled"`
	IntervalMS int    `toml:"interval_ms"`
	StatsAddr  string `toml:"stats_addr"`
}

// ShaderConfig points at a directory of WGSL sources that replace the built-in shaders and
// are reloaded when they change.
type ShaderConfig struct {
	Dir       string `toml:"dir"`
	HotReload bool   `toml:"hot_reload"`
}

type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level"`
}

// Default returns the settings used when no file is given: a threaded wgpu renderer with three
// command buffers of MinCommandBuffersSizeInMB each, vsync and no MSAA.
func Default() Config {
	return Config{
		Renderer: RendererConfig{
			Backend:         "wgpu",
			Mode:            "threaded",
			BufferCount:     command.MaxBackbufferCount,
			BufferSizeMB:    command.MinCommandBuffersSizeInMB,
			ConstantArenaKB: 1024,
			VertexArenaKB:   4096,
			IndexArenaKB:    1024,
			PresentMode:     "vsync",
			MSAA:            1,
		},
		Window: WindowConfig{
			Title:  "oxy-rt",
			Width:  1280,
			Height: 720,
		},
		Engine: EngineConfig{
			ClearColor: [4]float64{0.05, 0.05, 0.08, 1},
		},
		Loader: LoaderConfig{
			Workers:     4,
			QueueSize:   64,
			Parallelism: 4,
		},
		Profiler: ProfilerConfig{
			Enabled:    true,
			IntervalMS: 1000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a TOML file over Default and validates the result.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Config: the merged settings
//   - error: a read, parse or validation error
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes TOML over Default and validates the result. Unknown keys are rejected.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the merged settings
//   - error: a parse or validation error
func Parse(data []byte) (Config, error) {
	c := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalid, strict.String())
		}
		return Config{}, fmt.Errorf("parse: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Encode returns c as a TOML document.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate reports every setting outside its allowed range.
//
// Returns:
//   - error: nil, or every problem joined and wrapping ErrInvalid
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	r := c.Renderer
	check(oneOf(r.Backend, "wgpu", "headless"), "renderer.backend %q is not wgpu or headless", r.Backend)
	check(oneOf(r.Mode, "threaded", "single"), "renderer.mode %q is not threaded or single", r.Mode)
	check(r.BufferCount >= 2, "renderer.buffer_count %d is below 2", r.BufferCount)
	check(r.BufferSizeMB >= 1, "renderer.buffer_size_mb %d is below 1", r.BufferSizeMB)
	check(r.ConstantArenaKB > 0 && r.VertexArenaKB > 0 && r.IndexArenaKB > 0, "renderer arena sizes must be positive")
	check(oneOf(r.PresentMode, "vsync", "uncapped"), "renderer.present_mode %q is not vsync or uncapped", r.PresentMode)
	check(r.MSAA == 1 || r.MSAA == 4 || r.MSAA == 8 || r.MSAA == 16, "renderer.msaa %d is not 1, 4, 8 or 16", r.MSAA)

	check(c.Window.Width > 0 && c.Window.Height > 0, "window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	check(c.Engine.FrameLimit >= 0, "engine.frame_limit %v is negative", c.Engine.FrameLimit)
	for i, v := range c.Engine.ClearColor {
		check(v >= 0 && v <= 1, "engine.clear_color[%d] %v is outside [0, 1]", i, v)
	}
	check(c.Loader.Workers > 0 && c.Loader.QueueSize > 0 && c.Loader.Parallelism > 0, "loader sizes must be positive")
	check(c.Profiler.IntervalMS > 0, "profiler.interval_ms %d must be positive", c.Profiler.IntervalMS)
	check(!c.Shader.HotReload || c.Shader.Dir != "", "shader.hot_reload needs shader.dir")

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LogLevel parses Log.Level.
//
// Returns:
//   - slog.Level: the level
//   - error: ErrInvalid for unknown names
func (c Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	return l, nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}
