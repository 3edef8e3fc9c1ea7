// Package pipeline describes GPU pipeline state objects. A Pipeline is a CPU-side description
// (shaders, vertex layout, raster state) that a renderer device turns into a pipeline handle;
// recorded commands refer to the pipeline only through that handle.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

// RasterState is the fixed-function configuration of a render pipeline.
// Compute pipelines carry the defaults and ignore them.
type RasterState struct {
	DepthTest           bool
	DepthWrite          bool
	DepthBias           int32
	DepthBiasSlopeScale float32

	// Blend is nil when blending is disabled.
	Blend *wgpu.BlendState

	CullMode  wgpu.CullMode
	Topology  wgpu.PrimitiveTopology
	FrontFace wgpu.FrontFace
	WriteMask wgpu.ColorWriteMask
}

// AlphaBlend is the premultiplied-friendly "source over" blend used for transparent queues.
var AlphaBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineType PipelineType
	key          string

	vertexShader, fragmentShader, computeShader shader.Shader

	vertexLayouts []wgpu.VertexBufferLayout
	textured      bool
	state         RasterState

	handle command.PipelineHandle
}

// Pipeline is a render pipeline (vertex + fragment shader) or a compute pipeline (compute
// shader) with everything a device needs to create it.
type Pipeline interface {
	// Type returns the type of the pipeline.
	Type() PipelineType

	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	PipelineKey() string

	// Shader retrieves the shader associated with the specified stage, nil if none is set.
	//
	// Parameters:
	//   - shaderType: the stage to look up
	//
	// Returns:
	//   - shader.Shader: the shader for the stage, or nil
	Shader(shaderType shader.ShaderType) shader.Shader

	// VertexLayouts returns the vertex buffer layouts, one per bound vertex buffer slot.
	VertexLayouts() []wgpu.VertexBufferLayout

	// Textured reports whether the pipeline samples a material descriptor set (bind group 1).
	Textured() bool

	// State returns the raster state.
	State() RasterState

	// Handle returns the device pipeline handle, InvalidHandle until the pipeline is registered.
	Handle() command.PipelineHandle

	// SetHandle stores the device pipeline handle. Called by the renderer on registration.
	//
	// Parameters:
	//   - h: the handle returned by the device
	SetHandle(h command.PipelineHandle)

	// WithShaders returns a copy of the pipeline using the given shaders for their stages and
	// no device handle. Used to rebuild a pipeline after a shader reload.
	//
	// Parameters:
	//   - shaders: replacement shaders, matched to stages by ShaderType
	//
	// Returns:
	//   - Pipeline: the unregistered copy
	WithShaders(shaders ...shader.Shader) Pipeline

	// Validate reports whether the shaders required by the pipeline type are present.
	//
	// Returns:
	//   - error: a description of the first missing stage
	Validate() error
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a Pipeline description. Render pipelines default to depth test and write
// enabled, no blending, no culling, triangle lists, counter-clockwise front faces and a full
// color write mask.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: the type of pipeline to create (render or compute)
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified type and configuration
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		key:          pipelineKey,
		pipelineType: pipelineType,
		state: RasterState{
			DepthTest:  true,
			DepthWrite: true,
			CullMode:   wgpu.CullModeNone,
			Topology:   wgpu.PrimitiveTopologyTriangleList,
			FrontFace:  wgpu.FrontFaceCCW,
			WriteMask:  wgpu.ColorWriteMaskAll,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.key
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	case shader.ShaderTypeCompute:
		return p.computeShader
	default:
		return nil
	}
}

func (p *pipeline) VertexLayouts() []wgpu.VertexBufferLayout {
	return p.vertexLayouts
}

func (p *pipeline) Textured() bool {
	return p.textured
}

func (p *pipeline) State() RasterState {
	return p.state
}

func (p *pipeline) Handle() command.PipelineHandle {
	return p.handle
}

func (p *pipeline) SetHandle(h command.PipelineHandle) {
	p.handle = h
}

func (p *pipeline) WithShaders(shaders ...shader.Shader) Pipeline {
	next := *p
	next.handle = command.InvalidHandle
	for _, s := range shaders {
		if s == nil {
			continue
		}
		switch s.ShaderType() {
		case shader.ShaderTypeVertex:
			next.vertexShader = s
		case shader.ShaderTypeFragment:
			next.fragmentShader = s
		case shader.ShaderTypeCompute:
			next.computeShader = s
		}
	}
	return &next
}

func (p *pipeline) Validate() error {
	switch p.pipelineType {
	case PipelineTypeRender:
		if p.vertexShader == nil || p.fragmentShader == nil {
			return fmt.Errorf("pipeline %q: both vertex and fragment shaders must be set to create a render pipeline", p.key)
		}
	case PipelineTypeCompute:
		if p.computeShader == nil {
			return fmt.Errorf("pipeline %q: compute shader must be set to create a compute pipeline", p.key)
		}
	default:
		return errors.New("unknown pipeline type")
	}
	return nil
}
