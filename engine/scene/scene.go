// Package scene holds the scene graph: nodes with hierarchical transforms, the components
// attached to them and the Scene root that updates and collects them each frame.
package scene

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderqueue"
)

// uploader is implemented by components that own mesh data.
type uploader interface {
	Upload(r renderer.Renderer) error
}

// scene is the implementation of the Scene interface.
type scene struct {
	name   string
	active bool
	root   *node
	skybox Skybox
}

// Scene is the root of a node hierarchy. Views collect a scene into their RenderQueue; a
// scene may be shared by several views.
type Scene interface {
	// Name returns the scene name.
	Name() string

	// Active reports whether views should draw the scene.
	Active() bool

	// SetActive enables or disables drawing.
	SetActive(active bool)

	// Root returns the root node. It is never nil.
	Root() Node

	// Add parents nodes under the root.
	//
	// Parameters:
	//   - nodes: the nodes to add, detached from any previous parent
	Add(nodes ...Node)

	// Remove detaches n from wherever it hangs in this scene.
	//
	// Returns:
	//   - bool: false if n is not part of this scene
	Remove(n Node) bool

	// Find returns the first node named name in depth-first order, or nil.
	Find(name string) Node

	// Count returns the number of nodes below the root.
	Count() int

	// Skybox returns the skybox, nil if none is set.
	Skybox() Skybox

	// SetSkybox sets or clears the skybox.
	SetSkybox(s Skybox)

	// Update calls Update on the components of every enabled node, parents before children.
	//
	// Parameters:
	//   - delta: seconds since the previous frame
	Update(delta float64)

	// Upload creates GPU buffers for every mesh not uploaded yet.
	//
	// Parameters:
	//   - r: the renderer whose device owns the buffers
	//
	// Returns:
	//   - error: the joined upload errors; meshes that failed are retried on the next call
	Upload(r renderer.Renderer) error

	// Collect adds every renderable component of enabled nodes, and the skybox, to q.
	//
	// Parameters:
	//   - q: the queue to fill; it is not cleared first
	//
	// Returns:
	//   - int: the number of renderables added
	Collect(q renderqueue.RenderQueue) int
}

var _ Scene = &scene{}

// NewScene creates an empty, active scene.
//
// Parameters:
//   - name: the scene name
//   - options: variadic list of SceneBuilderOption functions to configure the scene
//
// Returns:
//   - Scene: the new scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{name: name, active: true}
	s.root = NewNode(name + "/root").impl()
	s.root.scene = s
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Name() string          { return s.name }
func (s *scene) Active() bool          { return s.active }
func (s *scene) SetActive(active bool) { s.active = active }
func (s *scene) Root() Node            { return s.root }
func (s *scene) Skybox() Skybox        { return s.skybox }
func (s *scene) SetSkybox(sb Skybox)   { s.skybox = sb }

func (s *scene) Add(nodes ...Node) {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if err := s.root.AddChild(n); err != nil {
			common.Logger().Warn("[Scene] node not added", "scene", s.name, "node", n.Name(), "error", err)
		}
	}
}

func (s *scene) Remove(n Node) bool {
	if n == nil || n.impl() == s.root || n.impl().scene != s {
		return false
	}
	n.Detach()
	return true
}

func (s *scene) Find(name string) Node {
	var found Node
	s.root.Walk(func(n Node) bool {
		if found != nil {
			return false
		}
		if n.Name() == name && n.impl() != s.root {
			found = n
			return false
		}
		return true
	})
	return found
}

func (s *scene) Count() int {
	count := -1
	s.root.Walk(func(Node) bool {
		count++
		return true
	})
	return count
}

func (s *scene) Update(delta float64) {
	s.root.Walk(func(n Node) bool {
		if !n.Enabled() {
			return false
		}
		for _, c := range n.Components() {
			c.Update(delta)
		}
		return true
	})
}

func (s *scene) Upload(r renderer.Renderer) error {
	var errs []error
	s.root.Walk(func(n Node) bool {
		for _, c := range n.Components() {
			if u, ok := c.(uploader); ok {
				errs = append(errs, u.Upload(r))
			}
		}
		return true
	})
	if s.skybox != nil {
		errs = append(errs, s.skybox.Upload(r))
	}
	return errors.Join(errs...)
}

func (s *scene) Collect(q renderqueue.RenderQueue) int {
	added := 0
	s.root.Walk(func(n Node) bool {
		if !n.Enabled() {
			return false
		}
		for _, c := range n.Components() {
			if rd, ok := c.(renderqueue.Renderable); ok && q.Add(rd) {
				added++
			}
		}
		return true
	})
	if s.skybox != nil && q.Add(s.skybox) {
		added++
	}
	return added
}
