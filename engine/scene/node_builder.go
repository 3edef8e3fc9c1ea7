package scene

import (
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/go-gl/mathgl/mgl32"
)

// NodeBuilderOption is a functional option for configuring a Node during construction.
type NodeBuilderOption func(*node)

// WithPosition sets the initial local position.
//
// Parameters:
//   - p: the position relative to the parent
//
// Returns:
//   - NodeBuilderOption: functional option to set the position
func WithPosition(p mgl32.Vec3) NodeBuilderOption {
	return func(n *node) {
		n.position = p
	}
}

// WithRotation sets the initial local rotation.
func WithRotation(q mgl32.Quat) NodeBuilderOption {
	return func(n *node) {
		n.rotation = q.Normalize()
	}
}

// WithEulerRotation sets the initial local rotation from XYZ Euler angles in radians.
func WithEulerRotation(x, y, z float32) NodeBuilderOption {
	return func(n *node) {
		n.rotation = mgl32.AnglesToQuat(x, y, z, mgl32.XYZ)
	}
}

// WithScale sets the initial local scale.
//
// Parameters:
//   - s: the scale per axis
//
// Returns:
//   - NodeBuilderOption: functional option to set the scale
func WithScale(s mgl32.Vec3) NodeBuilderOption {
	return func(n *node) {
		n.scale = s
	}
}

// WithEnabled sets whether the node is updated and collected.
func WithEnabled(enabled bool) NodeBuilderOption {
	return func(n *node) {
		n.enabled.Store(enabled)
	}
}

// WithComponents attaches components in order.
//
// Parameters:
//   - components: the components to attach
//
// Returns:
//   - NodeBuilderOption: functional option to attach the components
func WithComponents(components ...Component) NodeBuilderOption {
	return func(n *node) {
		for _, c := range components {
			n.AddComponent(c)
		}
	}
}

// WithChildren adopts children in order. Nil children and children that would form a cycle are
// skipped with a warning.
func WithChildren(children ...Node) NodeBuilderOption {
	return func(n *node) {
		for _, c := range children {
			if c == nil {
				continue
			}
			if err := n.AddChild(c); err != nil {
				common.Logger().Warn("[Scene] child not adopted", "node", n.name, "child", c.Name(), "error", err)
			}
		}
	}
}
