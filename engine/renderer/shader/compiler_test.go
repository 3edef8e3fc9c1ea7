package shader

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSource = `#include "frame"

@group(0) @binding(0) var<uniform> frame: Frame;

@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return frame.view_proj * vec4<f32>(position, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
#ifdef RED
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
#else
    return vec4<f32>(TINT, 1.0);
#endif
}
`

const frameInclude = `struct Frame {
    view_proj: mat4x4<f32>,
}`

func testCompiler() Compiler {
	return NewCompiler(WithInclude("frame", frameInclude))
}

func isSPIRV(b []byte) bool {
	if len(b) < 20 {
		return false
	}
	return binary.LittleEndian.Uint32(b) == 0x07230203 || binary.BigEndian.Uint32(b) == 0x07230203
}

func TestEntryPoints(t *testing.T) {
	src := "@compute @workgroup_size(64)\nfn cs_a() {}\n@vertex fn vs() {}\n@compute\n@workgroup_size(8, 8)\nfn cs_b() {}"
	assert.Equal(t, []string{"cs_a", "cs_b"}, EntryPoints(src, ShaderTypeCompute))
	assert.Equal(t, []string{"vs"}, EntryPoints(src, ShaderTypeVertex))
	assert.Empty(t, EntryPoints(src, ShaderTypeFragment))
}

func TestCompilerProducesSPIRV(t *testing.T) {
	out, err := testCompiler().Compile(testSource, ShaderTypeVertex, map[string]string{"RED": ""})
	require.NoError(t, err)
	assert.True(t, isSPIRV(out.Bytecode))
	assert.Contains(t, out.Source, "view_proj: mat4x4<f32>")
	assert.NotContains(t, out.Source, "#")
}

func TestCompilerRejectsMissingStage(t *testing.T) {
	_, err := testCompiler().Compile("@fragment fn fs() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }", ShaderTypeVertex, nil)
	assert.ErrorContains(t, err, "@vertex")
}

func TestCompilerReportsPreProcessorErrors(t *testing.T) {
	_, err := NewCompiler().Compile(testSource, ShaderTypeVertex, nil)
	assert.ErrorContains(t, err, "unknown include")
}

func TestNewShader(t *testing.T) {
	s := NewShader("lit.fs", ShaderTypeFragment, testSource,
		WithCompiler(testCompiler()),
		WithDefine("TINT", "vec3<f32>(0.5, 0.5, 0.5)"),
	)
	require.NotNil(t, s)
	assert.Equal(t, "lit.fs", s.Key())
	assert.Equal(t, ShaderTypeFragment, s.ShaderType())
	assert.Equal(t, "fs_main", s.EntryPoint())
	assert.Contains(t, s.Source(), "vec4<f32>(vec3<f32>(0.5, 0.5, 0.5), 1.0)")
	assert.Equal(t, testSource, s.OriginalSource())
	assert.Equal(t, map[string]string{"TINT": "vec3<f32>(0.5, 0.5, 0.5)"}, s.Defines())
	assert.True(t, isSPIRV(s.Bytecode()))
}

func TestNewShaderFailureReturnsNil(t *testing.T) {
	assert.Nil(t, NewShader("broken", ShaderTypeVertex, "@vertex fn vs( {", WithCompiler(testCompiler())))
	assert.Nil(t, NewShader("wrong entry", ShaderTypeVertex, testSource,
		WithCompiler(testCompiler()), WithDefine("RED", ""), WithEntryPoint("nope")))
	assert.Nil(t, NewShaderFromFile("missing", ShaderTypeVertex, filepath.Join(t.TempDir(), "none.wgsl")))
}

func TestShaderFromFileAndRecompile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "basic.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(testSource), 0o644))

	s := NewShaderFromFile("basic.vs", ShaderTypeVertex, path, WithCompiler(testCompiler()), WithDefine("RED", ""))
	require.NotNil(t, s)
	assert.Equal(t, path, s.Path())
	assert.Equal(t, "vs_main", s.EntryPoint())

	assert.Nil(t, s.Recompile("not wgsl"))

	next := s.Recompile(testSource + "\n// edited\n")
	require.NotNil(t, next)
	assert.Equal(t, s.Key(), next.Key())
	assert.Equal(t, path, next.Path())
	assert.Contains(t, next.Source(), "// edited")
}
