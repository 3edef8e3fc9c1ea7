package renderer

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/command"
)

// AllocConstant copies a plain-data value into the current frame's constant arena and returns
// the uniform range to bind it with. ok is false when the arena is exhausted; callers skip the
// dependent draw.
//
// Parameters:
//   - r: the renderer recording the frame
//   - v: pointer to the value to copy
//
// Returns:
//   - command.UniformRange: the range in the transient constant buffer
//   - bool: false when the value could not be allocated
func AllocConstant[T any](r Renderer, v *T) (command.UniformRange, bool) {
	data := common.StructToBytes(v)
	offset, ok := r.AllocConstantData(data)
	if !ok {
		return command.UniformRange{}, false
	}
	return command.UniformRange{
		Buffer: command.TransientConstantBuffer,
		Offset: uint32(offset),
		Size:   uint32(len(data)),
	}, true
}

// ReadConstantAs reads back a value previously placed in the current frame's constant arena.
//
// Parameters:
//   - r: the renderer recording the frame
//   - offset: the offset returned by the allocation
//
// Returns:
//   - T: the value
//   - bool: false when the span was never allocated
func ReadConstantAs[T any](r Renderer, offset uint64) (T, bool) {
	var zero T
	return common.BytesToStruct[T](r.ReadConstant(offset, int(unsafe.Sizeof(zero))))
}

// DrawUserPrimitives copies vertices into the vertex arena, binds them and records a
// non-indexed draw with the currently bound pipeline.
//
// Parameters:
//   - r: the renderer recording the frame
//   - vertices: the vertex data, laid out as the bound pipeline expects
//
// Returns:
//   - bool: false when the arena is exhausted and nothing was recorded
func DrawUserPrimitives[V any](r Renderer, vertices []V) bool {
	if len(vertices) == 0 {
		return false
	}
	data := common.SliceToBytes(vertices)
	offset, ok := r.AllocVertexBuffer(data)
	if !ok {
		return false
	}
	r.BindVertexBuffer(command.TransientVertexBuffer, offset, uint64(len(data)))
	r.Draw(uint32(len(vertices)), 1, 0, 0)
	return true
}

// DrawUserIndexedPrimitives is DrawUserPrimitives with 32-bit indices. The vertex and index
// copies are reserved together, so when either arena is exhausted nothing is allocated and
// nothing is recorded.
func DrawUserIndexedPrimitives[V any](r Renderer, vertices []V, indices []uint32) bool {
	if len(vertices) == 0 || len(indices) == 0 {
		return false
	}
	vdata := common.SliceToBytes(vertices)
	idata := common.SliceToBytes(indices)
	voff, ioff, ok := r.AllocGeometry(vdata, idata)
	if !ok {
		return false
	}
	r.BindVertexBuffer(command.TransientVertexBuffer, voff, uint64(len(vdata)))
	r.BindIndexBuffer(command.TransientIndexBuffer, ioff, uint64(len(idata)), command.IndexFormatUint32)
	r.DrawIndexed(uint32(len(indices)), 1, 0, 0, 0)
	return true
}
