package material

import (
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer(t *testing.T) renderer.Renderer {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, nil, renderer.WithMode(renderer.ModeSingleLoop))
	require.NoError(t, err)
	t.Cleanup(r.Destroy)
	return r
}

func checker() *common.TextureData {
	return &common.TextureData{
		Name:   "checker",
		Width:  2,
		Height: 2,
		Pixels: []byte{
			255, 255, 255, 255, 0, 0, 0, 255,
			0, 0, 0, 255, 255, 255, 255, 255,
		},
	}
}

func TestParamsMarshalMatchesMemoryLayout(t *testing.T) {
	p := GPUMaterialParams{
		BaseColor:   [4]float32{0.1, 0.2, 0.3, 1},
		Emissive:    [4]float32{1, 0, 0, 0},
		Metallic:    0.5,
		Roughness:   0.25,
		AlphaCutoff: 0.5,
		Textured:    1,
	}
	assert.Equal(t, 48, p.Size())
	assert.Equal(t, common.StructToBytes(&p), p.Marshal())
}

func TestMaterialUpdateAllocatesParams(t *testing.T) {
	r := newRenderer(t)
	m := NewMaterial(WithName("red"), WithBaseColor([4]float32{1, 0, 0, 1}), WithRoughness(3))
	assert.Equal(t, float32(1), m.Roughness())
	assert.True(t, m.Dirty())

	r.BeginFrame()
	require.NoError(t, m.Update(r))
	assert.False(t, m.Dirty())

	u := m.Uniforms()
	require.True(t, u.Valid())
	assert.Equal(t, command.TransientConstantBuffer, u.Buffer)
	assert.Equal(t, uint32(48), u.Size)

	got, ok := renderer.ReadConstantAs[GPUMaterialParams](r, uint64(u.Offset))
	require.True(t, ok)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, got.BaseColor)
	assert.Zero(t, got.Textured)
	assert.Equal(t, command.PipelineHandle(command.InvalidHandle), m.Pipeline())

	m.SetMetallic(0.75)
	assert.True(t, m.Dirty())
	require.NoError(t, m.Update(r))
	got, ok = renderer.ReadConstantAs[GPUMaterialParams](r, uint64(m.Uniforms().Offset))
	require.True(t, ok)
	assert.Equal(t, float32(0.75), got.Metallic)
	assert.NotEqual(t, u.Offset, m.Uniforms().Offset)

	r.EndFrame()
	r.Flush()
}

func TestMaterialTextureCreatesAndReplacesDescriptorSet(t *testing.T) {
	dev := renderer.NewHeadlessDevice()
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, nil,
		renderer.WithDevice(dev),
		renderer.WithMode(renderer.ModeSingleLoop),
	)
	require.NoError(t, err)
	defer r.Destroy()
	m := NewMaterial(WithName("checker"), WithTexture(checker()))

	r.BeginFrame()
	require.NoError(t, m.Update(r))
	set := m.DescriptorSet()
	assert.NotEqual(t, command.DescriptorSetHandle(command.InvalidHandle), set)
	got, ok := renderer.ReadConstantAs[GPUMaterialParams](r, uint64(m.Uniforms().Offset))
	require.True(t, ok)
	assert.Equal(t, uint32(1), got.Textured)
	first, ok := dev.DescriptorSet(set)
	require.True(t, ok)
	r.BindDescriptorSet(set)

	// The recorded bind above still references the first set.
	m.SetTexture(checker())
	require.NoError(t, m.Update(r))
	replaced := m.DescriptorSet()
	assert.NotEqual(t, set, replaced)
	second, ok := dev.DescriptorSet(replaced)
	require.True(t, ok)
	assert.NotEqual(t, first.Texture, second.Texture)

	_, ok = dev.DescriptorSet(set)
	assert.True(t, ok, "retired set lives until its frame has executed")
	assert.True(t, dev.HasTexture(first.Texture))
	r.BindDescriptorSet(replaced)
	r.EndFrame()
	r.Flush()

	_, ok = dev.DescriptorSet(set)
	assert.False(t, ok)
	assert.False(t, dev.HasTexture(first.Texture))
	_, ok = dev.DescriptorSet(replaced)
	assert.True(t, ok)

	r.BeginFrame()
	m.SetTexture(nil)
	require.NoError(t, m.Update(r))
	assert.Equal(t, command.DescriptorSetHandle(command.InvalidHandle), m.DescriptorSet())
	r.EndFrame()
	r.Flush()
	_, ok = dev.DescriptorSet(replaced)
	assert.False(t, ok)
	assert.False(t, dev.HasTexture(second.Texture))
}

func TestMaterialReleaseDestroysDeviceResources(t *testing.T) {
	dev := renderer.NewHeadlessDevice()
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, nil,
		renderer.WithDevice(dev),
		renderer.WithMode(renderer.ModeSingleLoop),
	)
	require.NoError(t, err)
	defer r.Destroy()
	m := NewMaterial(WithName("checker"), WithTexture(checker()))

	r.BeginFrame()
	require.NoError(t, m.Update(r))
	set := m.DescriptorSet()
	r.EndFrame()
	r.Flush()

	m.Release(r)
	assert.Equal(t, command.DescriptorSetHandle(command.InvalidHandle), m.DescriptorSet())
	r.BeginFrame()
	r.EndFrame()
	r.Flush()
	_, ok := dev.DescriptorSet(set)
	assert.False(t, ok)

	r.BeginFrame()
	require.NoError(t, m.Update(r))
	assert.NotEqual(t, command.DescriptorSetHandle(command.InvalidHandle), m.DescriptorSet())
	r.EndFrame()
	r.Flush()
}

func TestMaterialUpdateFailsWhenArenaExhausted(t *testing.T) {
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, nil,
		renderer.WithMode(renderer.ModeSingleLoop),
		renderer.WithArenaSizes(renderer.UniformBindingSize, 1024, 1024),
	)
	require.NoError(t, err)
	defer r.Destroy()

	reg := NewRegistry()
	reg.Register(NewMaterial(WithName("a")))
	reg.Register(NewMaterial(WithName("b")))

	r.BeginFrame()
	assert.Equal(t, 1, reg.UpdateAll(r))
	assert.False(t, reg.Materials()[1].Uniforms().Valid())
	r.EndFrame()
	r.Flush()
}

func TestRegistryOrderAndRemoval(t *testing.T) {
	reg := NewRegistry()
	a, b, c := NewMaterial(WithName("a")), NewMaterial(WithName("b")), NewMaterial(WithName("c"))
	reg.Register(a)
	reg.Register(b)
	reg.Register(c)
	reg.Register(b)
	reg.Register(nil)
	require.Equal(t, 3, reg.Len())

	reg.Unregister(a)
	reg.Unregister(a)
	assert.Equal(t, []Material{b, c}, reg.Materials())

	reg.Register(a)
	reg.Unregister(c)
	assert.Equal(t, []Material{b, a}, reg.Materials())
}

func TestRegistryConcurrentRegistration(t *testing.T) {
	r := newRenderer(t)
	reg := NewRegistry()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				m := NewMaterial()
				reg.Register(m)
				reg.Unregister(m)
			}
		}()
	}

	r.BeginFrame()
	for range 20 {
		assert.Zero(t, reg.UpdateAll(r))
	}
	wg.Wait()
	r.EndFrame()
	r.Flush()
	assert.Zero(t, reg.Len())
}
