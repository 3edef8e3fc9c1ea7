package shader

import (
	"fmt"
	"maps"
	"os"

	"github.com/Carmen-Shannon/oxy-rt/common"
)

// ShaderType identifies the pipeline stage a shader is written for.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// String returns the WGSL attribute name of the stage.
func (t ShaderType) String() string {
	switch t {
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// shader is the implementation of the Shader interface.
type shader struct {
	key        string
	shaderType ShaderType
	path       string

	original   string
	source     string
	entryPoint string
	bytecode   []byte
	defines    map[string]string

	compiler Compiler
}

// Shader is a compiled WGSL shader stage. The source it exposes has already been run through
// the pre-processor, so it is the exact text handed to the device.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// ShaderType returns the stage this shader was compiled for.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex, ShaderTypeFragment, or ShaderTypeCompute
	ShaderType() ShaderType

	// Source returns the pre-processed WGSL source.
	//
	// Returns:
	//   - string: the WGSL code with every directive resolved
	Source() string

	// OriginalSource returns the source before pre-processing.
	//
	// Returns:
	//   - string: the raw WGSL code
	OriginalSource() string

	// EntryPoint returns the entry point function name for this shader's stage.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main")
	EntryPoint() string

	// Bytecode returns the SPIR-V produced by the compiler.
	//
	// Returns:
	//   - []byte: the compiled module
	Bytecode() []byte

	// Defines returns a copy of the macro defines the shader was compiled with.
	//
	// Returns:
	//   - map[string]string: the defines
	Defines() map[string]string

	// Path returns the file the shader was loaded from, empty for in-memory sources.
	//
	// Returns:
	//   - string: the source path
	Path() string

	// Recompile compiles new source with the same key, stage, defines and compiler.
	// Failures are logged and yield nil, leaving the receiver untouched.
	//
	// Parameters:
	//   - source: the new WGSL source
	//
	// Returns:
	//   - Shader: the recompiled shader, or nil on failure
	Recompile(source string) Shader
}

var _ Shader = &shader{}

// NewShader pre-processes and compiles WGSL source for one stage.
// Compilation failures are logged and produce a nil Shader; callers skip the dependent pipeline.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - shaderType: the stage the shader is written for
//   - source: the WGSL source
//   - options: functional options for the shader
//
// Returns:
//   - Shader: the compiled shader, or nil on failure
func NewShader(key string, shaderType ShaderType, source string, options ...ShaderBuilderOption) Shader {
	s := &shader{
		key:        key,
		shaderType: shaderType,
		defines:    make(map[string]string),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.compiler == nil {
		s.compiler = NewCompiler()
	}
	if err := s.compile(source); err != nil {
		common.Logger().Error("[Shader] compilation failed", "key", key, "stage", shaderType, "path", s.path, "error", err)
		return nil
	}
	return s
}

// NewShaderFromFile reads WGSL source from path and compiles it with NewShader.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage the shader is written for
//   - path: the WGSL file to read
//   - options: functional options for the shader
//
// Returns:
//   - Shader: the compiled shader, or nil if the file cannot be read or fails to compile
func NewShaderFromFile(key string, shaderType ShaderType, path string, options ...ShaderBuilderOption) Shader {
	data, err := os.ReadFile(path)
	if err != nil {
		common.Logger().Error("[Shader] failed to read source", "key", key, "path", path, "error", err)
		return nil
	}
	return NewShader(key, shaderType, string(data), append(options, withPath(path))...)
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) OriginalSource() string {
	return s.original
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) Bytecode() []byte {
	return s.bytecode
}

func (s *shader) Defines() map[string]string {
	return maps.Clone(s.defines)
}

func (s *shader) Path() string {
	return s.path
}

func (s *shader) Recompile(source string) Shader {
	next := &shader{
		key:        s.key,
		shaderType: s.shaderType,
		path:       s.path,
		entryPoint: s.entryPoint,
		defines:    maps.Clone(s.defines),
		compiler:   s.compiler,
	}
	if err := next.compile(source); err != nil {
		common.Logger().Error("[Shader] recompilation failed", "key", s.key, "path", s.path, "error", err)
		return nil
	}
	return next
}

// compile runs the compiler and resolves the entry point for the shader's stage. An entry
// point set through WithEntryPoint must exist in the processed source.
func (s *shader) compile(source string) error {
	out, err := s.compiler.Compile(source, s.shaderType, s.defines)
	if err != nil {
		return err
	}

	points := EntryPoints(out.Source, s.shaderType)
	switch {
	case len(points) == 0:
		return fmt.Errorf("no @%s entry point", s.shaderType)
	case s.entryPoint == "":
		s.entryPoint = points[0]
	default:
		found := false
		for _, p := range points {
			found = found || p == s.entryPoint
		}
		if !found {
			return fmt.Errorf("entry point %q is not a @%s function", s.entryPoint, s.shaderType)
		}
	}

	s.original = source
	s.source = out.Source
	s.bytecode = out.Bytecode
	return nil
}
