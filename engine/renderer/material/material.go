// Package material holds surface parameters and textures, and flushes them into the current
// frame's transient constant arena once per frame through a Registry.
package material

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
)

// material is the implementation of the Material interface.
type material struct {
	mu *sync.Mutex

	name        string
	pipelineKey string
	params      GPUMaterialParams
	texture     *common.TextureData

	// Marshalled params, rebuilt when dirty.
	block []byte
	dirty bool

	// Device resources, created lazily on the main thread during Update.
	textureHandle command.TextureHandle
	descriptorSet command.DescriptorSetHandle
	textureDirty  bool

	pipeline command.PipelineHandle
	uniforms command.UniformRange
}

// Material defines the interface for a render material: a parameter block uploaded to the
// material uniform slot every frame, an optional base color texture, and the pipeline the
// material draws with.
//
// Setters may be called from any goroutine; Update must run on the renderer's main thread.
type Material interface {
	// Name retrieves the material identifier.
	Name() string

	// PipelineKey retrieves the key of the pipeline this material draws with.
	PipelineKey() string

	// SetPipelineKey changes the pipeline this material draws with.
	//
	// Parameters:
	//   - key: the pipeline key to associate with this material
	SetPipelineKey(key string)

	// BaseColor retrieves the linear RGBA albedo.
	BaseColor() [4]float32

	// SetBaseColor sets the linear RGBA albedo and marks the parameter block dirty.
	//
	// Parameters:
	//   - color: the base color as RGBA values
	SetBaseColor(color [4]float32)

	// Metallic retrieves the metallic factor.
	Metallic() float32

	// SetMetallic sets the metallic factor, clamped to [0, 1].
	SetMetallic(v float32)

	// Roughness retrieves the roughness factor.
	Roughness() float32

	// SetRoughness sets the roughness factor, clamped to [0, 1].
	SetRoughness(v float32)

	// SetEmissive sets the emitted RGB color.
	SetEmissive(rgb [3]float32)

	// Texture retrieves the base color texture data, or nil if none is set.
	Texture() *common.TextureData

	// SetTexture replaces the base color texture. The device texture and descriptor set are
	// updated on the next Update.
	//
	// Parameters:
	//   - tex: the decoded texture, or nil to fall back to the base color only
	SetTexture(tex *common.TextureData)

	// Dirty reports whether the parameter block changed since the last Update.
	Dirty() bool

	// Update re-marshals the parameter block if dirty, creates or refreshes texture resources,
	// resolves the pipeline handle and allocates this frame's uniform range.
	//
	// Parameters:
	//   - r: the renderer recording the frame
	//
	// Returns:
	//   - error: why the material cannot draw this frame
	Update(r renderer.Renderer) error

	// Pipeline returns the pipeline handle resolved by the last Update.
	Pipeline() command.PipelineHandle

	// Uniforms returns the uniform range allocated by the last Update.
	Uniforms() command.UniformRange

	// DescriptorSet returns the texture descriptor set, InvalidHandle when untextured.
	DescriptorSet() command.DescriptorSetHandle

	// Release destroys the device texture and descriptor set owned by the material. A later
	// Update recreates them.
	//
	// Parameters:
	//   - r: the renderer that created the texture
	Release(r renderer.Renderer)
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
// Defaults to opaque white, non-metallic, fully rough.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		mu: &sync.Mutex{},
		params: GPUMaterialParams{
			BaseColor: [4]float32{1, 1, 1, 1},
			Roughness: 1,
		},
		dirty: true,
	}
	for _, opt := range options {
		opt(m)
	}
	m.textureDirty = m.texture != nil
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) PipelineKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pipelineKey
}

func (m *material) SetPipelineKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pipelineKey = key
}

func (m *material) BaseColor() [4]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params.BaseColor
}

func (m *material) SetBaseColor(color [4]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params.BaseColor = color
	m.dirty = true
}

func (m *material) Metallic() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params.Metallic
}

func (m *material) SetMetallic(v float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params.Metallic = common.Clamp(v, 0, 1)
	m.dirty = true
}

func (m *material) Roughness() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params.Roughness
}

func (m *material) SetRoughness(v float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params.Roughness = common.Clamp(v, 0, 1)
	m.dirty = true
}

func (m *material) SetEmissive(rgb [3]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params.Emissive = [4]float32{rgb[0], rgb[1], rgb[2], 0}
	m.dirty = true
}

func (m *material) Texture() *common.TextureData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.texture
}

func (m *material) SetTexture(tex *common.TextureData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texture = tex
	m.textureDirty = true
	m.dirty = true
}

func (m *material) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

func (m *material) Update(r renderer.Renderer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.textureDirty {
		if err := m.syncTexture(r); err != nil {
			return err
		}
		m.textureDirty = false
	}

	if m.dirty {
		m.params.Textured = 0
		if m.descriptorSet != command.InvalidHandle {
			m.params.Textured = 1
		}
		m.block = m.params.Marshal()
		m.dirty = false
	}

	m.pipeline = command.InvalidHandle
	if p := r.Pipeline(m.pipelineKey); p != nil {
		m.pipeline = p.Handle()
	}

	offset, ok := r.AllocConstantData(m.block)
	if !ok {
		m.uniforms = command.UniformRange{}
		return fmt.Errorf("material %q: constant arena exhausted", m.name)
	}
	m.uniforms = command.UniformRange{
		Buffer: command.TransientConstantBuffer,
		Offset: uint32(offset),
		Size:   uint32(len(m.block)),
	}
	return nil
}

// syncTexture uploads the current texture and gives it a fresh descriptor set. Frames already
// recorded keep binding the previous set, which the renderer releases once they have executed.
// Callers hold m.mu.
func (m *material) syncTexture(r renderer.Renderer) error {
	oldTex, oldSet := m.textureHandle, m.descriptorSet
	if m.texture == nil {
		m.textureHandle = command.InvalidHandle
		m.descriptorSet = command.InvalidHandle
	} else {
		tex, err := r.CreateTexture(m.texture)
		if err != nil {
			return fmt.Errorf("material %q texture: %w", m.name, err)
		}
		set, err := r.CreateDescriptorSet(renderer.DescriptorSetDescriptor{Label: m.name, Texture: tex})
		if err != nil {
			r.DestroyTexture(tex)
			return fmt.Errorf("material %q descriptor set: %w", m.name, err)
		}
		m.textureHandle, m.descriptorSet = tex, set
	}
	if oldSet != command.InvalidHandle {
		r.DestroyDescriptorSet(oldSet)
	}
	if oldTex != command.InvalidHandle {
		r.DestroyTexture(oldTex)
	}
	return nil
}

func (m *material) Pipeline() command.PipelineHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pipeline
}

func (m *material) Uniforms() command.UniformRange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uniforms
}

func (m *material) DescriptorSet() command.DescriptorSetHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.descriptorSet
}

func (m *material) Release(r renderer.Renderer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.descriptorSet != command.InvalidHandle {
		r.DestroyDescriptorSet(m.descriptorSet)
		m.descriptorSet = command.InvalidHandle
	}
	if m.textureHandle != command.InvalidHandle {
		r.DestroyTexture(m.textureHandle)
		m.textureHandle = command.InvalidHandle
	}
	m.textureDirty = m.texture != nil
}
