package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVec3(t *testing.T, expected, actual mgl32.Vec3) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, expected[i], actual[i], 1e-4, "component %d of %v", i, actual)
	}
}

func TestFrameUniformsFillsOneBinding(t *testing.T) {
	var u FrameUniforms
	assert.Equal(t, 256, u.Size())
	assert.Contains(t, FrameUniformsSource, "struct FrameUniforms")
}

func TestControllerOrbitPosition(t *testing.T) {
	cc := NewCameraController(WithRadius(10), WithElevation(0), WithAzimuth(0))
	assertVec3(t, mgl32.Vec3{0, 0, 10}, cc.Position())

	cc.Orbit(float32(math.Pi/2), 0)
	assertVec3(t, mgl32.Vec3{10, 0, 0}, cc.Position())

	cc.Orbit(0, 10)
	assert.Less(t, cc.Elevation(), float32(math.Pi/2))
	assert.InDelta(t, 10, cc.Position().Sub(cc.Target()).Len(), 1e-4)
}

func TestControllerZoomClamps(t *testing.T) {
	cc := NewCameraController(WithRadius(5), WithRadiusLimits(2, 8), WithZoomSpeed(1))
	cc.Zoom(100)
	assert.Equal(t, float32(2), cc.Radius())
	cc.Zoom(-100)
	assert.Equal(t, float32(8), cc.Radius())
	cc.SetRadius(4)
	assert.Equal(t, float32(4), cc.Radius())
}

func TestControllerPanKeepsOrbit(t *testing.T) {
	cc := NewCameraController(WithRadius(10), WithElevation(0))
	before := cc.Position().Sub(cc.Target())
	cc.Pan(2, 0, 0)
	assertVec3(t, mgl32.Vec3{2, 0, 0}, cc.Target())
	assertVec3(t, before, cc.Position().Sub(cc.Target()))
	assert.Equal(t, float32(1), cc.PanSpeed())
}

func TestControllerAutoOrbit(t *testing.T) {
	cc := NewCameraController(WithAutoOrbit(1))
	cc.Update(0.5)
	assert.InDelta(t, 0.5, cc.Azimuth(), 1e-6)
	cc.SetAutoOrbit(0)
	cc.Update(1)
	assert.InDelta(t, 0.5, cc.Azimuth(), 1e-6)
	assert.Zero(t, cc.AutoOrbit())
}

func TestCameraMatrices(t *testing.T) {
	cc := NewCameraController(WithRadius(5), WithElevation(0))
	cam := NewCamera(WithController(cc), WithAspect(2), WithClip(0.5, 50))
	require.Same(t, cc, cam.Controller())

	assertVec3(t, mgl32.Vec3{0, 0, 5}, cam.Position())
	assert.Equal(t, common.Perspective(cam.Fov(), 2, 0.5, 50), cam.Projection())

	// The target lands in the centre of clip space.
	clip := cam.ViewProjection().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, clip.X()/clip.W(), 1e-5)
	assert.InDelta(t, 0, clip.Y()/clip.W(), 1e-5)
	depth := clip.Z() / clip.W()
	assert.Greater(t, depth, float32(0))
	assert.Less(t, depth, float32(1))

	var u FrameUniforms
	cam.Fill(&u)
	assert.Equal(t, cam.ViewProjection(), u.ViewProj)
	assert.Equal(t, [3]float32{0, 0, 5}, [3]float32(u.CameraPosition))
}

func TestCameraUpdateFollowsController(t *testing.T) {
	cc := NewCameraController(WithRadius(5), WithElevation(0), WithAutoOrbit(float32(math.Pi/2)))
	cam := NewCamera(WithController(cc))
	cam.Update(1)
	assertVec3(t, mgl32.Vec3{5, 0, 0}, cam.Position())

	cam.SetAspect(-1)
	assert.Equal(t, float32(1), cam.Aspect())
}

func TestCameraWithoutController(t *testing.T) {
	cam := NewCamera()
	assert.Nil(t, cam.Controller())
	assertVec3(t, mgl32.Vec3{}, cam.Position())
	assert.Equal(t, mgl32.Ident4(), cam.View())
}
