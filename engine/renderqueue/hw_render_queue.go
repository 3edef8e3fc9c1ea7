package renderqueue

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/command"
)

// HwRenderQueue stores the draw records a bucket submits with DrawBatch. The recorded command
// references the record slice until the render loop executes it, so storage is kept per frame
// slot and a slot is only reused MaxBackbufferCount frames later.
type HwRenderQueue struct {
	slots  [command.MaxBackbufferCount][]command.DrawRecord
	frames [command.MaxBackbufferCount]uint64
	begun  [command.MaxBackbufferCount]bool
	slot   int
}

// NewHwRenderQueue creates an empty queue.
func NewHwRenderQueue() *HwRenderQueue {
	return &HwRenderQueue{}
}

// Begin starts writing the records of frame.
//
// Parameters:
//   - frame: the frame being recorded
func (q *HwRenderQueue) Begin(frame uint64) {
	slot := int(frame % command.MaxBackbufferCount)
	if q.begun[slot] && q.frames[slot] == frame {
		// Already submitted this frame; the earlier batch still points at the old slice.
		q.slots[slot] = nil
	} else {
		q.slots[slot] = q.slots[slot][:0]
	}
	q.frames[slot] = frame
	q.begun[slot] = true
	q.slot = slot
}

// Add appends a record to the current frame's slot.
func (q *HwRenderQueue) Add(rec command.DrawRecord) {
	q.slots[q.slot] = append(q.slots[q.slot], rec)
}

// Records returns the current frame's records.
func (q *HwRenderQueue) Records() []command.DrawRecord {
	return q.slots[q.slot]
}

// Len returns the number of records in the current frame's slot.
func (q *HwRenderQueue) Len() int {
	return len(q.slots[q.slot])
}
