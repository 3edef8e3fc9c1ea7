// Package renderqueue buckets renderables by type and turns each non-empty bucket into one
// batched draw submission per frame.
package renderqueue

import (
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxRenderQueueCount is the number of buckets in a RenderQueue.
const MaxRenderQueueCount = 32

// RenderableType selects the bucket a renderable is collected into. Buckets draw in ascending
// order, so the type also fixes the draw order between groups.
type RenderableType int

const (
	RenderableTypeBackground  RenderableType = 0
	RenderableTypeOpaque      RenderableType = 10
	RenderableTypeAlphaTest   RenderableType = 15
	RenderableTypeSkybox      RenderableType = 20
	RenderableTypeTransparent RenderableType = 25
	RenderableTypeOverlay     RenderableType = MaxRenderQueueCount - 1
)

// Valid reports whether t names a bucket.
func (t RenderableType) Valid() bool {
	return t >= 0 && t < MaxRenderQueueCount
}

// MaterialBinding is what a primitive needs from its material at draw time.
type MaterialBinding interface {
	Pipeline() command.PipelineHandle
	Uniforms() command.UniformRange
	DescriptorSet() command.DescriptorSetHandle
}

// Primitive is one drawable piece of a renderable: geometry drawn with one material.
type Primitive struct {
	// ID identifies the primitive in recorded draw records.
	ID uint64

	Geometry command.Geometry
	Material MaterialBinding

	// InstanceCount of zero draws one instance.
	InstanceCount  uint32
	InstanceOffset uint32

	// Uniforms is an optional per-primitive block bound at the primitive slot.
	Uniforms command.UniformRange

	// Indirect, when set, draws the primitive immediately through an indirect argument buffer
	// instead of batching it.
	Indirect       command.BufferHandle
	IndirectOffset uint64
}

// Renderable is anything the render queue can draw. Implementations are owned by the scene;
// the queue only keeps references for the current frame.
type Renderable interface {
	RenderableType() RenderableType
	WorldTransform() mgl32.Mat4
	Primitives() []Primitive
}

// ObjectUniforms is the per-renderable constant block bound at the object slot.
// Size: 128 bytes.
type ObjectUniforms struct {
	World  mgl32.Mat4
	Normal mgl32.Mat4
}

// ObjectUniformsSource is the WGSL declaration matching ObjectUniforms.
const ObjectUniformsSource = `struct ObjectUniforms {
    world: mat4x4<f32>,
    normal: mat4x4<f32>,
};
`

// DrawStats counts what one Draw call recorded.
type DrawStats struct {
	Renderables int
	Batches     int
	Records     int
	Indirect    int
	Skipped     int
}

func (s *DrawStats) add(o DrawStats) {
	s.Renderables += o.Renderables
	s.Batches += o.Batches
	s.Records += o.Records
	s.Indirect += o.Indirect
	s.Skipped += o.Skipped
}

// renderQueue is the implementation of the RenderQueue interface.
type renderQueue struct {
	lists [MaxRenderQueueCount]*RenderList
}

// RenderQueue holds MaxRenderQueueCount RenderLists. It is not safe for concurrent use; the
// view that owns it collects and draws on the main thread.
type RenderQueue interface {
	// Clear empties every bucket. Called at the start of each collection pass.
	Clear()

	// Add appends r to the bucket named by its RenderableType.
	//
	// Parameters:
	//   - r: the renderable to collect
	//
	// Returns:
	//   - bool: false when the type is out of range and r was dropped
	Add(r Renderable) bool

	// List returns the bucket for t, nil when t is out of range.
	List(t RenderableType) *RenderList

	// Len returns the number of collected renderables across all buckets.
	Len() int

	// Draw draws buckets 0..31 in order. Empty buckets record nothing.
	//
	// Parameters:
	//   - cmd: the renderer recording the frame
	//   - perView: the view uniform range bound at the view slot of every draw
	//
	// Returns:
	//   - DrawStats: the totals over all buckets
	Draw(cmd renderer.Renderer, perView command.UniformRange) DrawStats
}

var _ RenderQueue = &renderQueue{}

// NewRenderQueue creates a RenderQueue with empty buckets.
//
// Parameters:
//   - options: variadic list of RenderQueueBuilderOption functions
//
// Returns:
//   - RenderQueue: the new queue
func NewRenderQueue(options ...RenderQueueBuilderOption) RenderQueue {
	cfg := renderQueueConfig{listCapacity: 16}
	for _, opt := range options {
		opt(&cfg)
	}
	q := &renderQueue{}
	for i := range q.lists {
		q.lists[i] = newRenderList(i, cfg.listCapacity)
	}
	return q
}

func (q *renderQueue) Clear() {
	for _, l := range q.lists {
		l.Clear()
	}
}

func (q *renderQueue) Add(r Renderable) bool {
	t := r.RenderableType()
	if !t.Valid() {
		common.Logger().Warn("[RenderQueue] renderable type out of range", "type", int(t))
		return false
	}
	q.lists[t].Add(r)
	return true
}

func (q *renderQueue) List(t RenderableType) *RenderList {
	if !t.Valid() {
		return nil
	}
	return q.lists[t]
}

func (q *renderQueue) Len() int {
	n := 0
	for _, l := range q.lists {
		n += l.Len()
	}
	return n
}

func (q *renderQueue) Draw(cmd renderer.Renderer, perView command.UniformRange) DrawStats {
	var total DrawStats
	for _, l := range q.lists {
		total.add(l.Draw(cmd, perView))
	}
	return total
}
