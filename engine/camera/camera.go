// Package camera computes view and projection matrices from a controller-owned eye position
// and fills the per-view FrameUniforms block.
package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/go-gl/mathgl/mgl32"
)

// cameraImpl is the implementation of the Camera interface.
type cameraImpl struct {
	mu *sync.Mutex

	up mgl32.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32

	position       mgl32.Vec3
	view           mgl32.Mat4
	projection     mgl32.Mat4
	viewProjection mgl32.Mat4

	controller CameraController
}

// Camera holds perspective settings and computes view/projection matrices from an attached
// CameraController each frame via Update.
type Camera interface {
	// Up returns the camera's up vector.
	Up() mgl32.Vec3

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// Position returns the eye position used for the last matrix update.
	Position() mgl32.Vec3

	// View returns the view matrix.
	View() mgl32.Mat4

	// Projection returns the projection matrix with WebGPU [0, 1] depth.
	Projection() mgl32.Mat4

	// ViewProjection returns projection * view.
	ViewProjection() mgl32.Mat4

	// Controller returns the attached CameraController, nil if none is attached.
	Controller() CameraController

	// SetController attaches a CameraController and recomputes the matrices.
	//
	// Parameters:
	//   - ctrl: the controller to attach
	SetController(ctrl CameraController)

	// SetUp sets the up vector.
	SetUp(up mgl32.Vec3)

	// SetFov sets the vertical field of view in radians.
	SetFov(fov float32)

	// SetAspect sets the aspect ratio. Non-positive values are ignored.
	//
	// Parameters:
	//   - aspect: width / height
	SetAspect(aspect float32)

	// SetClip sets the near and far plane distances.
	//
	// Parameters:
	//   - near: near plane distance, > 0
	//   - far: far plane distance, > near
	SetClip(near, far float32)

	// Update advances the controller by delta seconds and recomputes the matrices.
	//
	// Parameters:
	//   - delta: seconds since the previous frame
	Update(delta float64)

	// Fill writes the camera part of a FrameUniforms block.
	//
	// Parameters:
	//   - u: the block to fill
	Fill(u *FrameUniforms)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera with a 45 degree field of view, square aspect and a 0.1..100
// clip range.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		up:     mgl32.Vec3{0, 1, 0},
		fov:    45.0 * (math.Pi / 180.0),
		aspect: 1.0,
		near:   0.1,
		far:    100.0,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) View() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) Projection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) ViewProjection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjection
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
	c.updateMatrices()
}

func (c *cameraImpl) SetUp(up mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = up
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetClip(near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) Update(delta float64) {
	c.mu.Lock()
	ctrl := c.controller
	c.mu.Unlock()
	if ctrl != nil {
		ctrl.Update(delta)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
}

func (c *cameraImpl) Fill(u *FrameUniforms) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u.ViewProj = c.viewProjection
	u.View = c.view
	u.Proj = c.projection
	u.CameraPosition = c.position
}

// updateMatrices recomputes view, projection and view-projection. Without a controller the
// eye sits at the origin looking down -Z. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	eye, target := mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}
	if c.controller != nil {
		eye, target = c.controller.Position(), c.controller.Target()
	}
	if eye.Sub(target).Len() < 1e-6 {
		target = eye.Add(mgl32.Vec3{0, 0, -1})
	}
	c.position = eye
	c.view = mgl32.LookAtV(eye, target, c.up)
	c.projection = common.Perspective(c.fov, c.aspect, c.near, c.far)
	c.viewProjection = c.projection.Mul4(c.view)
}
