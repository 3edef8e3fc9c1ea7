// Package view pairs a camera with a scene. Each frame a view collects the scene into its own
// RenderQueue and draws it with its per-view FrameUniforms.
package view

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderqueue"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
)

// Stats describes the last Update and Render of a view.
type Stats struct {
	Collected int
	Draw      renderqueue.DrawStats
}

// viewImpl is the implementation of the View interface.
type viewImpl struct {
	mu *sync.Mutex

	name   string
	active bool

	r      renderer.Renderer
	camera camera.Camera
	scene  scene.Scene
	light  light.Light
	queue  renderqueue.RenderQueue

	elapsed float64
	stats   Stats
}

// View renders one scene through one camera. Several views may share a scene; each keeps its
// own queue so collection results never mix.
type View interface {
	// Name returns the view name.
	Name() string

	// Active reports whether the framework updates and renders the view.
	Active() bool

	// SetActive enables or disables the view.
	SetActive(active bool)

	// Camera returns the view's camera.
	Camera() camera.Camera

	// Scene returns the scene drawn by the view.
	Scene() scene.Scene

	// SetScene replaces the scene.
	SetScene(s scene.Scene)

	// Light returns the light written into the frame uniforms, nil for none.
	Light() light.Light

	// SetLight sets the light.
	SetLight(l light.Light)

	// Queue returns the view's render queue.
	Queue() renderqueue.RenderQueue

	// Resize updates the camera aspect ratio.
	//
	// Parameters:
	//   - width, height: the drawable size in pixels
	Resize(width, height int)

	// Update advances the camera, uploads pending meshes and collects the scene into the queue.
	//
	// Parameters:
	//   - delta: seconds since the previous frame
	//
	// Returns:
	//   - error: mesh upload failures; collection still happens
	Update(delta float64) error

	// Render allocates the frame uniforms, binds them at the view slot and draws the queue.
	// Nothing is drawn when the constant arena is exhausted.
	//
	// Parameters:
	//   - cmd: the renderer recording the frame, inside a render pass
	//
	// Returns:
	//   - renderqueue.DrawStats: what was recorded
	Render(cmd renderer.Renderer) renderqueue.DrawStats

	// Stats returns the counters of the last Update and Render.
	Stats() Stats
}

var _ View = &viewImpl{}

// NewView creates an active view.
//
// Parameters:
//   - name: the view name
//   - r: the renderer that owns mesh buffers
//   - cam: the camera to render through
//   - sc: the scene to draw
//   - options: variadic list of ViewBuilderOption functions
//
// Returns:
//   - View: the new view
func NewView(name string, r renderer.Renderer, cam camera.Camera, sc scene.Scene, options ...ViewBuilderOption) View {
	cfg := viewConfig{active: true, listCapacity: 16}
	for _, opt := range options {
		opt(&cfg)
	}
	return &viewImpl{
		mu:     &sync.Mutex{},
		name:   name,
		active: cfg.active,
		r:      r,
		camera: cam,
		scene:  sc,
		light:  cfg.light,
		queue:  renderqueue.NewRenderQueue(renderqueue.WithListCapacity(cfg.listCapacity)),
	}
}

func (v *viewImpl) Name() string { return v.name }

func (v *viewImpl) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active
}

func (v *viewImpl) SetActive(active bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = active
}

func (v *viewImpl) Camera() camera.Camera          { return v.camera }
func (v *viewImpl) Scene() scene.Scene             { return v.scene }
func (v *viewImpl) SetScene(s scene.Scene)         { v.scene = s }
func (v *viewImpl) Light() light.Light             { return v.light }
func (v *viewImpl) SetLight(l light.Light)         { v.light = l }
func (v *viewImpl) Queue() renderqueue.RenderQueue { return v.queue }

func (v *viewImpl) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	v.camera.SetAspect(float32(width) / float32(height))
}

func (v *viewImpl) Update(delta float64) error {
	v.elapsed += delta
	v.camera.Update(delta)
	v.queue.Clear()
	v.stats.Collected = 0
	if v.scene == nil || !v.scene.Active() {
		return nil
	}

	err := v.scene.Upload(v.r)
	if err != nil {
		common.Logger().Warn("[View] mesh upload failed", "view", v.name, "error", err)
	}
	v.stats.Collected = v.scene.Collect(v.queue)
	return err
}

func (v *viewImpl) Render(cmd renderer.Renderer) renderqueue.DrawStats {
	v.stats.Draw = renderqueue.DrawStats{}
	if v.queue.Len() == 0 {
		return v.stats.Draw
	}

	u := v.frameUniforms()
	perView, ok := renderer.AllocConstant(cmd, &u)
	if !ok {
		common.Logger().Warn("[View] frame uniforms did not fit the constant arena", "view", v.name, "frame", cmd.Frame())
		v.stats.Draw.Skipped = v.queue.Len()
		return v.stats.Draw
	}
	cmd.BindUniforms(command.UniformSlotView, perView)

	if sb := v.scene.Skybox(); sb != nil {
		sb.FollowView(v.camera.Position())
	}
	v.stats.Draw = v.queue.Draw(cmd, perView)
	return v.stats.Draw
}

func (v *viewImpl) frameUniforms() camera.FrameUniforms {
	var u camera.FrameUniforms
	v.camera.Fill(&u)
	u.Time = float32(v.elapsed)
	if v.light != nil {
		dir, c, a := v.light.Direction(), v.light.Color(), v.light.Ambient()
		u.LightDirection = dir
		u.LightColor = [4]float32{c[0], c[1], c[2], 1}
		u.Ambient = [4]float32{a[0], a[1], a[2], 1}
		if v.light.Enabled() {
			u.LightIntensity = v.light.Intensity()
		}
	}
	return u
}

func (v *viewImpl) Stats() Stats { return v.stats }
