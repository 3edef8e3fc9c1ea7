package renderer

import (
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/command"
)

// Default transient arena sizes per frame slot.
const (
	DefaultConstantArenaSize = 1 << 20
	DefaultVertexArenaSize   = 4 << 20
	DefaultIndexArenaSize    = 1 << 20
)

// arenaAlignment is the offset alignment each arena kind hands out. Constant offsets are bound
// as dynamic uniform offsets and so follow the uniform buffer offset alignment.
var arenaAlignment = [...]int{
	command.ArenaConstant: 256,
	command.ArenaVertex:   16,
	command.ArenaIndex:    4,
}

// TransientArena is a bump allocator for data that lives for one frame. It is reset, never
// freed, when its frame slot is reopened. Not safe for concurrent use; only the recording
// thread allocates and the render thread reads an arena only after it was sealed.
type TransientArena struct {
	kind   command.ArenaKind
	align  int
	data   []byte
	used   int
	sealed bool
}

// NewTransientArena creates an arena of the given kind and capacity.
//
// Parameters:
//   - kind: the arena kind, which selects the offset alignment
//   - capacity: the arena size in bytes, rounded up to the alignment
//
// Returns:
//   - *TransientArena: the new arena
func NewTransientArena(kind command.ArenaKind, capacity int) *TransientArena {
	align := arenaAlignment[kind]
	return &TransientArena{
		kind:  kind,
		align: align,
		data:  make([]byte, common.AlignUp(max(capacity, align), align)),
	}
}

// Alloc reserves size bytes and returns their offset. ok is false when the arena is sealed or
// exhausted; nothing is reserved in that case.
func (a *TransientArena) Alloc(size int) (offset uint64, ok bool) {
	if a.sealed || size <= 0 {
		return 0, false
	}
	start := common.AlignUp(a.used, a.align)
	if start+size > len(a.data) {
		return 0, false
	}
	a.used = start + size
	return uint64(start), true
}

// Fits reports whether Alloc(size) would succeed.
func (a *TransientArena) Fits(size int) bool {
	return !a.sealed && size > 0 && common.AlignUp(a.used, a.align)+size <= len(a.data)
}

// Write allocates room for data and copies it in.
//
// Parameters:
//   - data: the bytes to copy
//
// Returns:
//   - uint64: the offset of the copy
//   - bool: false when the arena is sealed or exhausted
func (a *TransientArena) Write(data []byte) (uint64, bool) {
	offset, ok := a.Alloc(len(data))
	if !ok {
		return 0, false
	}
	copy(a.data[offset:], data)
	return offset, true
}

// Read returns size bytes at offset, or nil when the span was never allocated.
func (a *TransientArena) Read(offset uint64, size int) []byte {
	end := int(offset) + size
	if size <= 0 || end > a.used {
		return nil
	}
	return a.data[offset:end]
}

// Bytes returns the used portion padded to 4 bytes, the granularity of buffer uploads.
func (a *TransientArena) Bytes() []byte {
	return a.data[:min(common.AlignUp(a.used, 4), len(a.data))]
}

// Seal rejects further allocations until Reset.
func (a *TransientArena) Seal() {
	a.sealed = true
}

// Sealed reports whether the arena rejects allocations.
func (a *TransientArena) Sealed() bool {
	return a.sealed
}

// Reset discards every allocation.
func (a *TransientArena) Reset() {
	a.used = 0
	a.sealed = false
}

func (a *TransientArena) Kind() command.ArenaKind { return a.kind }
func (a *TransientArena) Used() int               { return a.used }
func (a *TransientArena) Capacity() int           { return len(a.data) }
