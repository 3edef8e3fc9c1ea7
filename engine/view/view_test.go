package view

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderqueue"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testShaderSource = `@vertex fn vs_main(@location(0) pos: vec3<f32>) -> @builtin(position) vec4<f32> {
	return vec4<f32>(pos, 1.0);
}
@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`

func newRenderer(t *testing.T) (renderer.Renderer, renderer.HeadlessDevice) {
	t.Helper()
	dev := renderer.NewHeadlessDevice()
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, nil,
		renderer.WithDevice(dev),
		renderer.WithMode(renderer.ModeSingleLoop),
	)
	require.NoError(t, err)
	t.Cleanup(r.Destroy)

	vs := shader.NewShader("view_vs", shader.ShaderTypeVertex, testShaderSource)
	fs := shader.NewShader("view_fs", shader.ShaderTypeFragment, testShaderSource)
	require.NotNil(t, vs)
	require.NotNil(t, fs)
	require.NoError(t, r.RegisterPipelines(pipeline.NewPipeline("unlit", pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithMeshVertexLayout(),
	)))
	return r, dev
}

func cubeScene(mat material.Material, n int) scene.Scene {
	s := scene.NewScene("cubes")
	cube := model.NewCube("cube", 1)
	for i := range n {
		s.Add(scene.NewNode("cube",
			scene.WithPosition(mgl32.Vec3{float32(i) * 2, 0, 0}),
			scene.WithComponents(scene.NewMeshRenderable(cube, mat)),
		))
	}
	return s
}

func beginPass(r renderer.Renderer) {
	r.BeginFrame()
	r.MakeCurrent(r.Swapchain())
	r.BeginRendering(command.DefaultRenderTarget, command.RenderPassInfo{Clear: command.ClearAll, ClearDepth: 1})
}

func endPass(r renderer.Renderer) {
	r.EndRendering()
	r.Commit(r.Swapchain())
	r.EndFrame()
	r.Flush()
}

func TestViewRendersCollectedScene(t *testing.T) {
	r, dev := newRenderer(t)
	mat := material.NewMaterial(material.WithName("white"), material.WithPipeline("unlit"))
	v := NewView("main", r, camera.NewCamera(camera.WithController(camera.NewCameraController())), cubeScene(mat, 2))

	require.NoError(t, v.Update(0.016))
	assert.Equal(t, 2, v.Stats().Collected)
	require.NoError(t, mat.Update(r))

	beginPass(r)
	stats := v.Render(r)
	endPass(r)

	assert.Equal(t, renderqueue.DrawStats{Renderables: 2, Batches: 1, Records: 2}, stats)
	assert.Equal(t, stats, v.Stats().Draw)
	assert.Equal(t, uint64(2), dev.Stats().Draws)
	bound := dev.BoundUniforms()[command.UniformSlotView]
	assert.True(t, bound.Valid())
	assert.Equal(t, uint32(256), bound.Size)
}

func TestViewFrameUniformsCarryCameraAndLight(t *testing.T) {
	r, _ := newRenderer(t)
	cam := camera.NewCamera(camera.WithController(camera.NewCameraController(camera.WithRadius(4))))
	sun := light.NewDirectional(light.WithIntensity(2), light.WithDirection(mgl32.Vec3{1, 0, 0}))
	// No material: the primitive is skipped but the frame uniforms are still written first.
	v := NewView("main", r, cam, cubeScene(nil, 1), WithLight(sun))
	v.Resize(800, 400)
	assert.Equal(t, float32(2), cam.Aspect())

	require.NoError(t, v.Update(0.5))
	beginPass(r)
	stats := v.Render(r)
	u, ok := renderer.ReadConstantAs[camera.FrameUniforms](r, 0)
	require.True(t, ok)
	endPass(r)

	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, cam.ViewProjection(), u.ViewProj)
	assert.Equal(t, [3]float32(cam.Position()), u.CameraPosition)
	assert.Equal(t, float32(0.5), u.Time)
	assert.Equal(t, float32(2), u.LightIntensity)
	assert.Equal(t, [3]float32{1, 0, 0}, u.LightDirection)

	sun.SetEnabled(false)
	require.NoError(t, v.Update(0.5))
	beginPass(r)
	v.Render(r)
	u, ok = renderer.ReadConstantAs[camera.FrameUniforms](r, 0)
	require.True(t, ok)
	endPass(r)
	assert.Zero(t, u.LightIntensity)
	assert.Equal(t, float32(1), u.Time)
}

func TestViewInactiveSceneDrawsNothing(t *testing.T) {
	r, dev := newRenderer(t)
	sc := cubeScene(nil, 3)
	sc.SetActive(false)
	v := NewView("main", r, camera.NewCamera(), sc, WithQueueCapacity(4))

	require.NoError(t, v.Update(0.016))
	assert.Zero(t, v.Stats().Collected)
	beginPass(r)
	assert.Equal(t, renderqueue.DrawStats{}, v.Render(r))
	endPass(r)
	assert.Zero(t, dev.Stats().Draws)
}

func TestViewSkyboxFollowsCamera(t *testing.T) {
	r, _ := newRenderer(t)
	cc := camera.NewCameraController(camera.WithTarget(mgl32.Vec3{3, 0, 0}))
	sc := scene.NewScene("sky", scene.WithSkybox(scene.NewSkybox(nil, 10)))
	v := NewView("main", r, camera.NewCamera(camera.WithController(cc)), sc)

	require.NoError(t, v.Update(0))
	assert.Equal(t, 1, v.Stats().Collected)
	beginPass(r)
	v.Render(r)
	endPass(r)

	eye := sc.Skybox().WorldTransform().Col(3).Vec3()
	assert.InDelta(t, cc.Position().X(), eye.X(), 1e-5)
	assert.InDelta(t, cc.Position().Z(), eye.Z(), 1e-5)
}
