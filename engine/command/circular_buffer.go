package command

import (
	"fmt"
	"sync"
)

const initialSlotCount = 256

// Range is a committed span of a CircularBuffer. The commands of a range become visible to the
// consumer as one indivisible unit and execute in the order they were written.
type Range struct {
	buffer *CircularBuffer
	slots  []Command
	start  uint64
	end    uint64
	bytes  int
}

// Buffer returns the CircularBuffer the range was committed from.
func (r Range) Buffer() *CircularBuffer {
	return r.buffer
}

// Len returns the number of commands in the range.
func (r Range) Len() int {
	return int(r.end - r.start)
}

// Bytes returns the circular buffer bytes the range occupies.
func (r Range) Bytes() int {
	return r.bytes
}

// Empty reports whether the range holds no commands.
func (r Range) Empty() bool {
	return r.end == r.start
}

// At returns the i-th command of the range.
func (r Range) At(i int) Command {
	return r.slots[(r.start+uint64(i))%uint64(len(r.slots))]
}

// Each calls fn for every command of the range in recording order.
//
// Parameters:
//   - fn: the function called with each command
func (r Range) Each(fn func(Command)) {
	n := uint64(len(r.slots))
	for s := r.start; s < r.end; s++ {
		fn(r.slots[s%n])
	}
}

// CircularBuffer is a fixed-capacity ring of recorded commands. Capacity is measured in bytes:
// every command is charged its Size, and writers block once the bytes written but not yet
// released by the consumer would exceed the capacity.
//
// Positions are free-running sequence numbers: head is the next slot to write, committed marks
// the start of the span not yet published, and tail is the oldest slot the consumer still owns.
type CircularBuffer struct {
	mu   sync.Mutex
	cond *sync.Cond

	id       int
	capacity int

	slots     []Command
	head      uint64
	committed uint64
	tail      uint64

	used    int
	pending int
	closed  bool
}

// NewCircularBuffer creates an empty CircularBuffer.
//
// Parameters:
//   - id: identifier reported in diagnostics
//   - capacity: the capacity in bytes
//
// Returns:
//   - *CircularBuffer: the new buffer
func NewCircularBuffer(id, capacity int) *CircularBuffer {
	if capacity < HeaderSize {
		panic(fmt.Sprintf("command: circular buffer capacity %d is below the %d byte command header", capacity, HeaderSize))
	}
	b := &CircularBuffer{
		id:       id,
		capacity: capacity,
		slots:    make([]Command, min(initialSlotCount, capacity/HeaderSize)),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// ID returns the buffer identifier.
func (b *CircularBuffer) ID() int {
	return b.id
}

// Capacity returns the buffer capacity in bytes.
func (b *CircularBuffer) Capacity() int {
	return b.capacity
}

// Used returns the bytes written and not yet released.
func (b *CircularBuffer) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Free returns the bytes available for writing.
func (b *CircularBuffer) Free() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity - b.used
}

// Pending returns the number of commands written since the last Commit.
func (b *CircularBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int(b.head - b.committed)
}

// Push writes cmd into the buffer without blocking. It returns false when the free space is
// insufficient or the buffer was closed. A command larger than the whole buffer is a
// configuration error and panics.
//
// Parameters:
//   - cmd: the command to write
//
// Returns:
//   - bool: true if the command was written
func (b *CircularBuffer) Push(cmd Command) bool {
	size := cmd.Size()
	if size > b.capacity {
		panic(fmt.Sprintf("command: %s needs %d bytes but circular buffer %d holds %d", cmd.Type(), size, b.id, b.capacity))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.capacity-b.used < size {
		return false
	}
	if int(b.head-b.tail) == len(b.slots) {
		b.grow()
	}
	b.slots[b.head%uint64(len(b.slots))] = cmd
	b.head++
	b.used += size
	b.pending += size
	return true
}

// WaitFree blocks until size bytes are free. It returns false if the buffer was closed while
// waiting.
//
// Parameters:
//   - size: the number of bytes needed
//
// Returns:
//   - bool: true once the space is available
func (b *CircularBuffer) WaitFree(size int) bool {
	if size > b.capacity {
		panic(fmt.Sprintf("command: waiting for %d bytes in circular buffer %d that holds %d", size, b.id, b.capacity))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for !b.closed && b.capacity-b.used < size {
		b.cond.Wait()
	}
	return !b.closed
}

// WaitDrained blocks until every command written to the buffer has been released. It returns
// false if the buffer was closed while waiting.
//
// Returns:
//   - bool: true once the buffer is drained
func (b *CircularBuffer) WaitDrained() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for !b.closed && b.used > 0 {
		b.cond.Wait()
	}
	return !b.closed
}

// Commit publishes the commands written since the last commit as one Range.
//
// Returns:
//   - Range: the committed span, empty if nothing was written
func (b *CircularBuffer) Commit() Range {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := Range{
		buffer: b,
		slots:  b.slots,
		start:  b.committed,
		end:    b.head,
		bytes:  b.pending,
	}
	b.committed = b.head
	b.pending = 0
	return r
}

// Release reclaims a consumed range and wakes blocked writers. Ranges must be released in the
// order they were committed.
//
// Parameters:
//   - r: the consumed range
func (b *CircularBuffer) Release(r Range) {
	if r.buffer != b {
		panic(fmt.Sprintf("command: range released to circular buffer %d it was not committed from", b.id))
	}
	if r.Empty() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if r.start != b.tail {
		panic(fmt.Sprintf("command: circular buffer %d released out of order (range starts at %d, tail is %d)", b.id, r.start, b.tail))
	}
	n := uint64(len(b.slots))
	for s := r.start; s < r.end; s++ {
		b.slots[s%n] = nil
	}
	b.tail = r.end
	b.used -= r.bytes
	b.cond.Broadcast()
}

// Close wakes every blocked writer; subsequent writes fail.
func (b *CircularBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.cond.Broadcast()
}

// grow doubles the slot ring, keeping every live sequence number at its new position.
// Ranges committed earlier keep reading the previous slice, which is never written again.
func (b *CircularBuffer) grow() {
	oldN := uint64(len(b.slots))
	next := make([]Command, oldN*2)
	newN := uint64(len(next))
	for s := b.tail; s < b.head; s++ {
		next[s%newN] = b.slots[s%oldN]
	}
	b.slots = next
}
