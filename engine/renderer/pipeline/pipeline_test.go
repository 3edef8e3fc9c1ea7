package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const src = `@vertex fn vs() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0, 0.0, 0.0, 1.0); }
@fragment fn fs() -> @location(0) vec4<f32> { return vec4<f32>(1.0, 1.0, 1.0, 1.0); }
@compute @workgroup_size(1) fn cs() {}
`

func TestPipelineDefaults(t *testing.T) {
	p := NewPipeline("default", PipelineTypeRender)
	st := p.State()
	assert.True(t, st.DepthTest)
	assert.True(t, st.DepthWrite)
	assert.Nil(t, st.Blend)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, st.Topology)
	assert.Equal(t, wgpu.ColorWriteMaskAll, st.WriteMask)
	assert.Equal(t, command.PipelineHandle(command.InvalidHandle), p.Handle())
	assert.Error(t, p.Validate())
}

func TestPipelineOptions(t *testing.T) {
	p := NewPipeline("sky", PipelineTypeRender,
		WithDepth(true, false),
		WithBlend(&AlphaBlend),
		WithCullMode(wgpu.CullModeFront),
		WithMeshVertexLayout(),
		WithTextures(true),
	)
	st := p.State()
	assert.False(t, st.DepthWrite)
	assert.Same(t, &AlphaBlend, st.Blend)
	assert.Equal(t, wgpu.CullModeFront, st.CullMode)
	assert.True(t, p.Textured())
	require.Len(t, p.VertexLayouts(), 1)
	assert.Equal(t, uint64(MeshVertexStride), p.VertexLayouts()[0].ArrayStride)
	assert.Len(t, p.VertexLayouts()[0].Attributes, 3)
}

func TestPipelineValidateAndWithShaders(t *testing.T) {
	vs := shader.NewShader("vs", shader.ShaderTypeVertex, src)
	fs := shader.NewShader("fs", shader.ShaderTypeFragment, src)
	cs := shader.NewShader("cs", shader.ShaderTypeCompute, src)
	require.NotNil(t, vs)
	require.NotNil(t, fs)
	require.NotNil(t, cs)

	render := NewPipeline("r", PipelineTypeRender, WithVertexShader(vs))
	assert.Error(t, render.Validate())

	full := render.WithShaders(fs)
	assert.NoError(t, full.Validate())
	assert.Same(t, vs, full.Shader(shader.ShaderTypeVertex))
	assert.Same(t, fs, full.Shader(shader.ShaderTypeFragment))
	assert.Nil(t, render.Shader(shader.ShaderTypeFragment))

	full.SetHandle(7)
	again := full.WithShaders(nil)
	assert.Equal(t, command.PipelineHandle(command.InvalidHandle), again.Handle())
	assert.Equal(t, "r", again.PipelineKey())

	compute := NewPipeline("c", PipelineTypeCompute, WithComputeShader(cs))
	assert.NoError(t, compute.Validate())
}
