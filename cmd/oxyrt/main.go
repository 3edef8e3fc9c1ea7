// Command oxyrt renders a demo scene with the oxy-rt engine. Settings come from an optional
// TOML file and are overridden by flags.
//
// Usage:
//
//	oxyrt [-config file] [-headless] [-frames n] [-mode threaded|single] [-texture file] ...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/config"
	"github.com/Carmen-Shannon/oxy-rt/engine"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/loader"
	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
)

// cliOptions are the parsed command line flags. Settings flags only override the config file
// when given explicitly.
type cliOptions struct {
	configPath string
	dumpConfig bool
	texture    string
	cubes      int

	headless  bool
	frames    uint64
	mode      string
	logLevel  string
	statsAddr string
	shaderDir string
	hotReload bool

	set map[string]bool
}

func parseFlags(args []string, output io.Writer) (*cliOptions, error) {
	var o cliOptions
	flags := flag.NewFlagSet("oxyrt", flag.ContinueOnError)
	flags.SetOutput(output)
	flags.StringVar(&o.configPath, "config", "", "TOML settings file")
	flags.BoolVar(&o.dumpConfig, "dump-config", false, "print the effective settings as TOML and exit")
	flags.StringVar(&o.texture, "texture", "", "image streamed in as the crate texture")
	flags.IntVar(&o.cubes, "cubes", 12, "number of cubes in the demo ring")
	flags.BoolVar(&o.headless, "headless", false, "render without a window on the headless device")
	flags.Uint64Var(&o.frames, "frames", 0, "stop after this many frames, 0 runs until closed")
	flags.StringVar(&o.mode, "mode", "", "command execution mode: threaded or single")
	flags.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&o.statsAddr, "stats-addr", "", "serve profiler snapshots over websocket on this address")
	flags.StringVar(&o.shaderDir, "shader-dir", "", "load lit.wgsl and skybox.wgsl from this directory")
	flags.BoolVar(&o.hotReload, "hot-reload", false, "recompile shaders from -shader-dir when they change")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		fmt.Fprintf(output, "unexpected arguments: %v\n", flags.Args())
		flags.Usage()
		return nil, errors.New("unexpected arguments")
	}

	o.set = make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return &o, nil
}

// config loads the settings file, if any, and applies the explicit flags on top.
func (o *cliOptions) config() (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return config.Config{}, err
		}
	}

	if o.set["headless"] && o.headless {
		cfg.Renderer.Backend = "headless"
	}
	if o.set["frames"] {
		cfg.Engine.MaxFrames = o.frames
	}
	if o.set["mode"] {
		cfg.Renderer.Mode = o.mode
	}
	if o.set["log-level"] {
		cfg.Log.Level = o.logLevel
	}
	if o.set["stats-addr"] {
		cfg.Profiler.StatsAddr = o.statsAddr
	}
	if o.set["shader-dir"] {
		cfg.Shader.Dir = o.shaderDir
	}
	if o.set["hot-reload"] {
		cfg.Shader.HotReload = o.hotReload
	}
	return cfg, cfg.Validate()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cli, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}

	cfg, err := cli.config()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if cli.dumpConfig {
		data, err := cfg.Encode()
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		stdout.Write(data)
		return 0
	}

	level, _ := cfg.LogLevel()
	common.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := start(ctx, cfg, cli); err != nil {
		common.Logger().Error("[Main] exiting", "error", err)
		return 1
	}
	return 0
}

// start builds the window, renderer, demo scene and framework, then runs until ctx is done,
// the window closes or the frame limit is reached.
func start(ctx context.Context, cfg config.Config, cli *cliOptions) error {
	shaders, err := loadShaders(cfg.Shader.Dir)
	if err != nil {
		return err
	}
	defer shaders.close()
	if cfg.Shader.HotReload {
		if err := shaders.watch(); err != nil {
			common.Logger().Warn("[Main] hot reload disabled", "error", err)
		}
	}

	var win window.Window
	var surface renderer.Surface
	width, height := cfg.Window.Width, cfg.Window.Height
	if cfg.BackendType() == renderer.BackendTypeWGPU {
		if win, err = window.NewWindow(cfg.WindowOptions()...); err != nil {
			return err
		}
		surface = win
		width, height = win.Width(), win.Height()
	}

	r, err := renderer.NewRenderer(cfg.BackendType(), surface, cfg.RendererOptions()...)
	if err != nil {
		if win != nil {
			win.Close()
		}
		return err
	}
	if err := r.RegisterPipelines(shaders.pipelines()...); err != nil {
		r.Destroy()
		if win != nil {
			win.Close()
		}
		return err
	}

	streamer := loader.NewStreamer(loader.NewLoader(cfg.LoaderOptions()...), cfg.StreamerOptions()...)
	d := newDemo(r, cli.cubes, float32(width)/float32(max(height, 1)))

	options := append(cfg.FrameworkOptions(),
		engine.WithStreamer(streamer),
		engine.WithViews(d.view),
	)
	if win != nil {
		options = append(options, engine.WithWindow(win))
	}
	if cfg.Profiler.Enabled {
		var pub profiler.Publisher
		if cfg.Profiler.StatsAddr != "" {
			srv := profiler.NewStatsServer(cfg.Profiler.StatsAddr)
			if err := srv.Start(); err != nil {
				common.Logger().Warn("[Main] stats server disabled", "error", err)
				closeStats(srv)
			} else {
				defer closeStats(srv)
				pub = srv
				common.Logger().Info("[Main] serving stats", "addr", srv.Addr())
			}
		}
		options = append(options, engine.WithProfiler(profiler.NewProfiler(cfg.ProfilerOptions(pub)...)))
	}

	fw := engine.NewFramework(r, options...)
	defer fw.Destroy()
	for _, m := range d.materials {
		fw.Materials().Register(m)
	}
	fw.SetHooks(engine.Hooks{
		OnPreUpdate: func(float64) {
			shaders.reload(r)
		},
		OnTextureLoaded: func(res loader.Result) {
			if res.Err != nil {
				common.Logger().Warn("[Main] texture failed to load", "name", res.Name, "error", res.Err)
				return
			}
			d.textured.SetTexture(res.Texture)
			common.Logger().Info("[Main] texture applied", "name", res.Name, "elapsed", res.Elapsed)
		},
	})
	if win != nil {
		win.SetCallbacks(inputCallbacks(fw, d.controller, win))
	}

	if cli.texture != "" {
		req := loader.Request{Name: filepath.Base(cli.texture), Path: cli.texture}
		if err := streamer.Request(req); err != nil {
			common.Logger().Warn("[Main] texture request rejected", "path", cli.texture, "error", err)
		}
	}

	common.Logger().Info("[Main] running",
		"backend", cfg.Renderer.Backend,
		"mode", cfg.Renderer.Mode,
		"size", fmt.Sprintf("%dx%d", width, height),
		"maxFrames", cfg.Engine.MaxFrames,
	)
	err = fw.Run(ctx)
	common.Logger().Info("[Main] stopped", "frames", fw.Frames())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func closeStats(srv *profiler.StatsServer) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Close(ctx); err != nil {
		common.Logger().Warn("[Main] stats server close", "error", err)
	}
}

const (
	orbitPerPixel = 0.005
	panStep       = 0.5
)

// inputCallbacks maps window input onto the framework and the camera controller: scroll zooms,
// middle-button drag orbits, WASD/QE pan, space toggles the auto orbit and escape quits.
func inputCallbacks(fw engine.Framework, ctrl camera.CameraController, win window.Window) window.Callbacks {
	autoOrbit := ctrl.AutoOrbit()
	return window.Callbacks{
		Resize: fw.Resize,
		Scroll: ctrl.Zoom,
		Drag: func(dx, dy float32) {
			ctrl.Orbit(-dx*orbitPerPixel, dy*orbitPerPixel)
		},
		Key: func(key window.Key, down bool) {
			if !down {
				return
			}
			switch key {
			case window.KeyW:
				ctrl.Pan(0, 0, panStep)
			case window.KeyS:
				ctrl.Pan(0, 0, -panStep)
			case window.KeyA:
				ctrl.Pan(-panStep, 0, 0)
			case window.KeyD:
				ctrl.Pan(panStep, 0, 0)
			case window.KeyQ:
				ctrl.Pan(0, -panStep, 0)
			case window.KeyE:
				ctrl.Pan(0, panStep, 0)
			case window.KeySpace:
				if ctrl.AutoOrbit() != 0 {
					ctrl.SetAutoOrbit(0)
				} else {
					ctrl.SetAutoOrbit(autoOrbit)
				}
			case window.KeyEscape:
				win.RequestClose()
				fw.Quit()
			}
		},
	}
}
