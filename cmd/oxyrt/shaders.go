package main

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderqueue"
)

//go:embed assets/lit.wgsl
var litSource string

//go:embed assets/skybox.wgsl
var skyboxSource string

const (
	litPipeline    = "lit"
	skyboxPipeline = "skybox"
)

// programs maps a pipeline key to its embedded source. A shader directory overrides the
// source with <dir>/<key>.wgsl.
var programs = map[string]string{
	litPipeline:    litSource,
	skyboxPipeline: skyboxSource,
}

// shaderSet holds the vertex and fragment shaders of every program and, when hot reload is
// enabled, recompiles them as their files change.
type shaderSet struct {
	compiler shader.Compiler
	shaders  map[string][2]shader.Shader
	watcher  shader.Watcher
}

// newShaderCompiler registers the uniform struct declarations the programs include.
func newShaderCompiler() shader.Compiler {
	return shader.NewCompiler(shader.WithIncludes(map[string]string{
		"frame":    camera.FrameUniformsSource,
		"object":   renderqueue.ObjectUniformsSource,
		"material": material.GPUMaterialParamsSource,
	}))
}

// loadShaders compiles every program from dir, or from the embedded sources when dir is empty.
//
// Parameters:
//   - dir: the shader directory, may be empty
//
// Returns:
//   - *shaderSet: the compiled shaders
//   - error: an error naming every program that failed to compile
func loadShaders(dir string) (*shaderSet, error) {
	set := &shaderSet{
		compiler: newShaderCompiler(),
		shaders:  make(map[string][2]shader.Shader, len(programs)),
	}

	var errs []error
	for key, src := range programs {
		var vs, fs shader.Shader
		if dir != "" {
			path := filepath.Join(dir, key+".wgsl")
			vs = shader.NewShaderFromFile(key+".vs", shader.ShaderTypeVertex, path, shader.WithCompiler(set.compiler))
			fs = shader.NewShaderFromFile(key+".fs", shader.ShaderTypeFragment, path, shader.WithCompiler(set.compiler))
		} else {
			vs = shader.NewShader(key+".vs", shader.ShaderTypeVertex, src, shader.WithCompiler(set.compiler))
			fs = shader.NewShader(key+".fs", shader.ShaderTypeFragment, src, shader.WithCompiler(set.compiler))
		}
		if vs == nil || fs == nil {
			errs = append(errs, fmt.Errorf("program %q failed to compile", key))
			continue
		}
		set.shaders[key] = [2]shader.Shader{vs, fs}
	}
	return set, errors.Join(errs...)
}

// pipelines builds the render pipelines for the compiled programs.
func (s *shaderSet) pipelines() []pipeline.Pipeline {
	lit := s.shaders[litPipeline]
	sky := s.shaders[skyboxPipeline]
	return []pipeline.Pipeline{
		pipeline.NewPipeline(litPipeline, pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(lit[0]),
			pipeline.WithFragmentShader(lit[1]),
			pipeline.WithMeshVertexLayout(),
			pipeline.WithTextures(true),
		),
		pipeline.NewPipeline(skyboxPipeline, pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(sky[0]),
			pipeline.WithFragmentShader(sky[1]),
			pipeline.WithMeshVertexLayout(),
			pipeline.WithDepth(true, false),
		),
	}
}

// watch starts a file watcher on every file-backed shader. Embedded shaders are not watched.
//
// Returns:
//   - error: an error if the watcher cannot be created or a file cannot be added
func (s *shaderSet) watch() error {
	w, err := shader.NewWatcher()
	if err != nil {
		return fmt.Errorf("shader watcher: %w", err)
	}
	for _, pair := range s.shaders {
		if path := pair[0].Path(); path != "" {
			if err := w.Add(path); err != nil {
				w.Close()
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
	}
	s.watcher = w
	return nil
}

// reload recompiles the shaders of every changed file and rebuilds the pipelines using them.
// It never blocks. A shader that fails to compile keeps its previous version.
//
// Parameters:
//   - r: the renderer owning the pipelines
//
// Returns:
//   - int: the number of pipelines rebuilt
func (s *shaderSet) reload(r renderer.Renderer) int {
	if s.watcher == nil {
		return 0
	}
	rebuilt := 0
	for {
		select {
		case path, ok := <-s.watcher.Changes():
			if !ok {
				return rebuilt
			}
			rebuilt += s.reloadFile(r, path)
		default:
			return rebuilt
		}
	}
}

func (s *shaderSet) reloadFile(r renderer.Renderer, path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		common.Logger().Warn("[Shader] changed file unreadable", "path", path, "error", err)
		return 0
	}

	rebuilt := 0
	for key, pair := range s.shaders {
		if filepath.Clean(pair[0].Path()) != filepath.Clean(path) {
			continue
		}
		for i, old := range pair {
			next := old.Recompile(string(data))
			if next == nil {
				continue
			}
			n, err := r.ReloadShader(next)
			if err != nil {
				common.Logger().Warn("[Shader] pipeline rebuild failed", "shader", next.Key(), "error", err)
			}
			rebuilt += n
			pair[i] = next
		}
		s.shaders[key] = pair
	}
	return rebuilt
}

// close stops the watcher, if any.
func (s *shaderSet) close() {
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
}
