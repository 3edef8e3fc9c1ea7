package scene

import (
	"errors"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrCycle is returned when a node would become its own ancestor.
var ErrCycle = errors.New("scene: node cannot be parented to itself or a descendant")

var nodeIDs atomic.Uint64

func nextNodeID() uint64 {
	return nodeIDs.Add(1)
}

// node is the implementation of the Node interface.
type node struct {
	id      uint64
	name    string
	enabled atomic.Bool

	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3

	// local is rebuilt from position/rotation/scale when localDirty is set. dirty marks the
	// cached world transform stale; a dirty node always has dirty descendants.
	local      mgl32.Mat4
	world      mgl32.Mat4
	localDirty bool
	dirty      bool

	parent     *node
	children   []*node
	components []Component
	scene      *scene
}

// Node is an element of the scene graph. It owns its children and components and carries a
// local transform. The world transform is cached: a transform change or reparent marks the
// node and every descendant dirty immediately, and WorldTransform recomputes on demand.
//
// Nodes are not safe for concurrent use; the scene is mutated on the main thread.
type Node interface {
	// ID returns the process-unique node id.
	ID() uint64

	// Name returns the node name.
	Name() string

	// SetName sets the node name.
	SetName(name string)

	// Enabled reports whether the node and its subtree are updated and collected.
	Enabled() bool

	// SetEnabled enables or disables the node and its subtree.
	SetEnabled(enabled bool)

	// Position returns the local position.
	Position() mgl32.Vec3

	// SetPosition sets the local position.
	//
	// Parameters:
	//   - p: the position relative to the parent
	SetPosition(p mgl32.Vec3)

	// Rotation returns the local rotation.
	Rotation() mgl32.Quat

	// SetRotation sets the local rotation.
	//
	// Parameters:
	//   - q: the rotation relative to the parent, normalized before use
	SetRotation(q mgl32.Quat)

	// SetEulerRotation sets the local rotation from XYZ Euler angles in radians.
	SetEulerRotation(x, y, z float32)

	// Rotate applies an additional rotation about axis on top of the current one.
	//
	// Parameters:
	//   - axis: the rotation axis in parent space
	//   - angle: the angle in radians
	Rotate(axis mgl32.Vec3, angle float32)

	// Scale returns the local scale.
	Scale() mgl32.Vec3

	// SetScale sets the local scale.
	SetScale(s mgl32.Vec3)

	// LocalTransform returns translation * rotation * scale.
	LocalTransform() mgl32.Mat4

	// WorldTransform returns parent world * local, recomputing stale ancestors first.
	//
	// Returns:
	//   - mgl32.Mat4: the object-to-world transform
	WorldTransform() mgl32.Mat4

	// WorldPosition returns the translation of the world transform.
	WorldPosition() mgl32.Vec3

	// Dirty reports whether the cached world transform is stale.
	Dirty() bool

	// Parent returns the parent node, nil for a root.
	Parent() Node

	// Children returns the child nodes in insertion order.
	Children() []Node

	// AddChild reparents child under this node, detaching it from its previous parent.
	//
	// Parameters:
	//   - child: the node to adopt
	//
	// Returns:
	//   - error: ErrCycle if child is this node or one of its ancestors
	AddChild(child Node) error

	// RemoveChild detaches child from this node.
	//
	// Returns:
	//   - bool: false if child was not a direct child
	RemoveChild(child Node) bool

	// Detach removes the node from its parent.
	Detach()

	// AddComponent attaches c to this node.
	AddComponent(c Component)

	// RemoveComponent detaches c.
	//
	// Returns:
	//   - bool: false if c was not attached to this node
	RemoveComponent(c Component) bool

	// Components returns the attached components in insertion order.
	Components() []Component

	// Scene returns the scene whose root this node hangs under, nil when detached.
	Scene() Scene

	// Walk visits the node and its descendants depth first. Returning false from fn skips the
	// visited node's subtree.
	Walk(fn func(Node) bool)

	// Clone deep-copies the subtree. Clones get fresh ids, cloned components and no parent.
	//
	// Returns:
	//   - Node: the detached copy
	Clone() Node

	impl() *node
}

var _ Node = &node{}

// NewNode creates a detached node at the origin with identity rotation and unit scale.
//
// Parameters:
//   - name: the node name
//   - options: variadic list of NodeBuilderOption functions to configure the node
//
// Returns:
//   - Node: the new node
func NewNode(name string, options ...NodeBuilderOption) Node {
	n := &node{
		id:         nextNodeID(),
		name:       name,
		rotation:   mgl32.QuatIdent(),
		scale:      mgl32.Vec3{1, 1, 1},
		local:      mgl32.Ident4(),
		world:      mgl32.Ident4(),
		localDirty: true,
		dirty:      true,
	}
	n.enabled.Store(true)
	for _, opt := range options {
		opt(n)
	}
	return n
}

func (n *node) impl() *node { return n }

func (n *node) ID() uint64           { return n.id }
func (n *node) Name() string         { return n.name }
func (n *node) SetName(name string)  { n.name = name }
func (n *node) Enabled() bool        { return n.enabled.Load() }
func (n *node) SetEnabled(e bool)    { n.enabled.Store(e) }
func (n *node) Position() mgl32.Vec3 { return n.position }
func (n *node) Rotation() mgl32.Quat { return n.rotation }
func (n *node) Scale() mgl32.Vec3    { return n.scale }
func (n *node) Dirty() bool          { return n.dirty }

func (n *node) SetPosition(p mgl32.Vec3) {
	n.position = p
	n.invalidateLocal()
}

func (n *node) SetRotation(q mgl32.Quat) {
	n.rotation = q.Normalize()
	n.invalidateLocal()
}

func (n *node) SetEulerRotation(x, y, z float32) {
	n.SetRotation(mgl32.AnglesToQuat(x, y, z, mgl32.XYZ))
}

func (n *node) Rotate(axis mgl32.Vec3, angle float32) {
	if axis.Len() == 0 || angle == 0 {
		return
	}
	n.SetRotation(mgl32.QuatRotate(angle, axis.Normalize()).Mul(n.rotation))
}

func (n *node) SetScale(s mgl32.Vec3) {
	n.scale = s
	n.invalidateLocal()
}

func (n *node) invalidateLocal() {
	n.localDirty = true
	n.markDirty()
}

// markDirty pushes staleness down the subtree. A dirty node already has dirty descendants.
func (n *node) markDirty() {
	if n.dirty {
		return
	}
	n.dirty = true
	for _, c := range n.children {
		c.markDirty()
	}
}

func (n *node) LocalTransform() mgl32.Mat4 {
	if n.localDirty {
		t := mgl32.Translate3D(n.position.X(), n.position.Y(), n.position.Z())
		s := mgl32.Scale3D(n.scale.X(), n.scale.Y(), n.scale.Z())
		n.local = t.Mul4(n.rotation.Mat4()).Mul4(s)
		n.localDirty = false
	}
	return n.local
}

func (n *node) WorldTransform() mgl32.Mat4 {
	if !n.dirty {
		return n.world
	}
	local := n.LocalTransform()
	if n.parent != nil {
		n.world = n.parent.WorldTransform().Mul4(local)
	} else {
		n.world = local
	}
	n.dirty = false
	return n.world
}

func (n *node) WorldPosition() mgl32.Vec3 {
	return n.WorldTransform().Col(3).Vec3()
}

func (n *node) Parent() Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *node) Children() []Node {
	out := make([]Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *node) AddChild(child Node) error {
	c := child.impl()
	for p := n; p != nil; p = p.parent {
		if p == c {
			return ErrCycle
		}
	}
	if c.parent != nil {
		c.parent.removeChild(c)
	}
	c.parent = n
	n.children = append(n.children, c)
	c.setScene(n.scene)
	c.markDirty()
	return nil
}

func (n *node) RemoveChild(child Node) bool {
	c := child.impl()
	if c.parent != n {
		return false
	}
	n.removeChild(c)
	c.parent = nil
	c.setScene(nil)
	c.markDirty()
	return true
}

func (n *node) removeChild(c *node) {
	for i, ch := range n.children {
		if ch == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

func (n *node) Detach() {
	if n.parent != nil {
		n.parent.RemoveChild(n)
	}
}

func (n *node) setScene(s *scene) {
	n.scene = s
	for _, c := range n.children {
		c.setScene(s)
	}
}

func (n *node) AddComponent(c Component) {
	if c == nil {
		return
	}
	n.components = append(n.components, c)
	c.Attach(n)
}

func (n *node) RemoveComponent(c Component) bool {
	for i, comp := range n.components {
		if comp == c {
			n.components = append(n.components[:i], n.components[i+1:]...)
			c.Attach(nil)
			return true
		}
	}
	return false
}

func (n *node) Components() []Component {
	return n.components
}

func (n *node) Scene() Scene {
	if n.scene == nil {
		return nil
	}
	return n.scene
}

func (n *node) Walk(fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}

func (n *node) Clone() Node {
	return n.clone()
}

func (n *node) clone() *node {
	c := &node{
		id:         nextNodeID(),
		name:       n.name,
		position:   n.position,
		rotation:   n.rotation,
		scale:      n.scale,
		local:      mgl32.Ident4(),
		world:      mgl32.Ident4(),
		localDirty: true,
		dirty:      true,
	}
	c.enabled.Store(n.enabled.Load())
	for _, comp := range n.components {
		c.AddComponent(comp.Clone())
	}
	for _, ch := range n.children {
		cc := ch.clone()
		cc.parent = c
		c.children = append(c.children, cc)
	}
	return c
}
