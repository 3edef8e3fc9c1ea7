package material

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
)

// registry is the implementation of the Registry interface.
type registry struct {
	mu        *sync.Mutex
	materials []Material
	index     map[Material]int
}

// Registry tracks the live materials that need their parameter blocks flushed every frame.
// It is safe for concurrent use: materials may be registered and unregistered from any
// goroutine while UpdateAll runs.
type Registry interface {
	// Register adds m to the registry. Registering twice is a no-op.
	//
	// Parameters:
	//   - m: the material to track
	Register(m Material)

	// Unregister removes m. Unknown materials are ignored.
	//
	// Parameters:
	//   - m: the material to forget
	Unregister(m Material)

	// UpdateAll calls Update on every registered material in registration order.
	//
	// Parameters:
	//   - r: the renderer recording the frame
	//
	// Returns:
	//   - int: the number of materials whose update failed
	UpdateAll(r renderer.Renderer) int

	// Len returns the number of registered materials.
	Len() int

	// Materials returns a snapshot of the registered materials.
	Materials() []Material
}

var _ Registry = &registry{}

// NewRegistry creates an empty Registry.
func NewRegistry() Registry {
	return &registry{
		mu:    &sync.Mutex{},
		index: make(map[Material]int),
	}
}

func (g *registry) Register(m Material) {
	if m == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.index[m]; ok {
		return
	}
	g.index[m] = len(g.materials)
	g.materials = append(g.materials, m)
}

func (g *registry) Unregister(m Material) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i, ok := g.index[m]
	if !ok {
		return
	}
	delete(g.index, m)
	copy(g.materials[i:], g.materials[i+1:])
	g.materials[len(g.materials)-1] = nil
	g.materials = g.materials[:len(g.materials)-1]
	for j := i; j < len(g.materials); j++ {
		g.index[g.materials[j]] = j
	}
}

func (g *registry) UpdateAll(r renderer.Renderer) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	failed := 0
	for _, m := range g.materials {
		if err := m.Update(r); err != nil {
			common.Logger().Warn("[Material] update failed", "material", m.Name(), "err", err)
			failed++
		}
	}
	return failed
}

func (g *registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.materials)
}

func (g *registry) Materials() []Material {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Material(nil), g.materials...)
}
