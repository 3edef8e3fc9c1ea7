package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Component adds behaviour or renderable data to a Node. A component belongs to at most one
// node at a time.
type Component interface {
	// Attach binds the component to its node. Called with nil when the component is removed.
	//
	// Parameters:
	//   - n: the owning node, or nil
	Attach(n Node)

	// Update advances the component by delta seconds. Called once per frame for enabled nodes.
	Update(delta float64)

	// Clone returns a fresh, unattached component with the same configuration.
	Clone() Component
}

// rotator is the implementation of the Rotator interface.
type rotator struct {
	node  Node
	axis  mgl32.Vec3
	speed float32
}

// Rotator spins its node about a fixed axis.
type Rotator interface {
	Component

	// Speed returns the angular speed in radians per second.
	Speed() float32

	// SetSpeed sets the angular speed in radians per second.
	SetSpeed(speed float32)
}

var _ Rotator = &rotator{}

// NewRotator creates a Rotator.
//
// Parameters:
//   - axis: the rotation axis in parent space
//   - speed: the angular speed in radians per second
//
// Returns:
//   - Rotator: the unattached component
func NewRotator(axis mgl32.Vec3, speed float32) Rotator {
	return &rotator{axis: axis, speed: speed}
}

func (r *rotator) Attach(n Node)          { r.node = n }
func (r *rotator) Speed() float32         { return r.speed }
func (r *rotator) SetSpeed(speed float32) { r.speed = speed }

func (r *rotator) Update(delta float64) {
	if r.node == nil {
		return
	}
	r.node.Rotate(r.axis, r.speed*float32(delta))
}

func (r *rotator) Clone() Component {
	return &rotator{axis: r.axis, speed: r.speed}
}
