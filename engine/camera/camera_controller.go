package camera

import (
	"github.com/go-gl/mathgl/mgl32"
)

// CameraController owns the eye position and look-at target a Camera reads each frame. The
// orbit controls move the eye on a sphere around the target; the planar controls translate eye
// and target together.
type CameraController interface {
	orbitCameraController
	planarCameraController

	// Position returns the world-space eye position.
	Position() mgl32.Vec3

	// Target returns the look-at point.
	Target() mgl32.Vec3

	// SetTarget moves the pivot and recomputes the eye from the orbit angles.
	//
	// Parameters:
	//   - target: the world-space pivot
	SetTarget(target mgl32.Vec3)

	// Zoom moves the eye towards the target. Positive delta zooms in.
	//
	// Parameters:
	//   - delta: zoom amount scaled by ZoomSpeed
	Zoom(delta float32)

	// Update applies time-based motion such as auto orbit.
	//
	// Parameters:
	//   - delta: seconds since the previous frame
	Update(delta float64)
}

// orbitCameraController defines the spherical (radius, azimuth, elevation) controls.
type orbitCameraController interface {
	// Orbit rotates the eye around the target.
	//
	// Parameters:
	//   - dAzimuth: change of the horizontal angle in radians
	//   - dElevation: change of the vertical angle in radians, clamped to the elevation bounds
	Orbit(dAzimuth, dElevation float32)

	// Radius returns the distance from the target.
	Radius() float32

	// SetRadius sets the distance from the target, clamped to the radius bounds.
	SetRadius(radius float32)

	// Azimuth returns the horizontal angle around the Y axis in radians.
	Azimuth() float32

	// Elevation returns the vertical angle from the horizontal plane in radians.
	Elevation() float32

	// AutoOrbit returns the azimuth speed applied by Update, in radians per second.
	AutoOrbit() float32

	// SetAutoOrbit sets the azimuth speed applied by Update.
	SetAutoOrbit(speed float32)
}

// planarCameraController defines translation along the camera's local axes. Panning shifts
// eye and target by the same offset, preserving the orbit.
type planarCameraController interface {
	// Pan translates along the local right, up and forward axes.
	//
	// Parameters:
	//   - right, up, forward: amounts scaled by PanSpeed
	Pan(right, up, forward float32)

	// PanSpeed returns the pan speed multiplier.
	PanSpeed() float32
}
