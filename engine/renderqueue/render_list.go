package renderqueue

import (
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
)

// RenderList is one bucket: the renderables collected this frame and the HwRenderQueue their
// batched draws are written into.
type RenderList struct {
	index       int
	renderables []Renderable
	hw          *HwRenderQueue
}

func newRenderList(index, capacity int) *RenderList {
	return &RenderList{
		index:       index,
		renderables: make([]Renderable, 0, capacity),
		hw:          NewHwRenderQueue(),
	}
}

// Index returns the bucket index.
func (l *RenderList) Index() int { return l.index }

// Add appends r in insertion order.
func (l *RenderList) Add(r Renderable) { l.renderables = append(l.renderables, r) }

// Len returns the number of collected renderables.
func (l *RenderList) Len() int { return len(l.renderables) }

// Renderables returns the collected renderables. The slice is reused by the next collection.
func (l *RenderList) Renderables() []Renderable { return l.renderables }

// HwQueue returns the bucket's batched draw queue.
func (l *RenderList) HwQueue() *HwRenderQueue { return l.hw }

// Clear drops the collected references, keeping capacity.
func (l *RenderList) Clear() {
	clear(l.renderables)
	l.renderables = l.renderables[:0]
}

// Draw allocates one ObjectUniforms block per renderable and records its primitives. Indirect
// primitives draw immediately; every other primitive becomes a DrawRecord, and the records
// are submitted with one DrawBatch after the whole list.
//
// Parameters:
//   - cmd: the renderer recording the frame
//   - perView: the view uniform range
//
// Returns:
//   - DrawStats: what was recorded for this bucket
func (l *RenderList) Draw(cmd renderer.Renderer, perView command.UniformRange) DrawStats {
	var stats DrawStats
	if len(l.renderables) == 0 {
		return stats
	}

	l.hw.Begin(cmd.Frame())
	for _, r := range l.renderables {
		world := r.WorldTransform()
		obj := ObjectUniforms{World: world, Normal: common.NormalMatrix(world)}
		perObject, ok := renderer.AllocConstant(cmd, &obj)
		if !ok {
			stats.Skipped++
			continue
		}
		stats.Renderables++

		for _, p := range r.Primitives() {
			if p.Material == nil || p.Geometry.VertexBuffer == command.InvalidHandle {
				stats.Skipped++
				continue
			}
			pipeline := p.Material.Pipeline()
			if pipeline == command.InvalidHandle {
				stats.Skipped++
				continue
			}
			uniforms := command.UniformSet{
				command.UniformSlotView:      perView,
				command.UniformSlotObject:    perObject,
				command.UniformSlotMaterial:  p.Material.Uniforms(),
				command.UniformSlotPrimitive: p.Uniforms,
			}

			if p.Indirect != command.InvalidHandle {
				drawIndirect(cmd, pipeline, uniforms, p)
				stats.Indirect++
				continue
			}

			l.hw.Add(command.DrawRecord{
				Primitive:      p.ID,
				Pipeline:       pipeline,
				Geometry:       p.Geometry,
				InstanceCount:  p.InstanceCount,
				InstanceOffset: p.InstanceOffset,
				Uniforms:       uniforms,
				Textures:       p.Material.DescriptorSet(),
			})
		}
	}

	if l.hw.Len() > 0 {
		cmd.DrawBatch(l.index, l.hw.Records())
		stats.Batches++
		stats.Records += l.hw.Len()
	}
	return stats
}

func drawIndirect(cmd renderer.Renderer, pipeline command.PipelineHandle, uniforms command.UniformSet, p Primitive) {
	cmd.BindPipelineState(pipeline)
	for slot, u := range uniforms {
		if u.Valid() {
			cmd.BindUniforms(command.UniformSlot(slot), u)
		}
	}
	cmd.BindDescriptorSet(p.Material.DescriptorSet())
	cmd.DrawIndirect(p.Geometry, p.Indirect, p.IndirectOffset)
}
