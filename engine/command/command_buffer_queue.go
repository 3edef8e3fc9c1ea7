package command

import (
	"sync"
)

const (
	// MinCommandBuffersSizeInMB is the default size of one circular buffer.
	MinCommandBuffersSizeInMB = 2

	// CommandBufferSizeInMB is the default total size of all circular buffers of a queue.
	CommandBufferSizeInMB = 3 * MinCommandBuffersSizeInMB

	// MaxBackbufferCount is the number of frames that may be recorded or in flight at once.
	// It is also the default number of circular buffers.
	MaxBackbufferCount = 3

	// MinBufferSize is the smallest capacity accepted for a circular buffer.
	MinBufferSize = 1 << 10
)

// commandBufferQueue is the implementation of the CommandBufferQueue interface.
type commandBufferQueue struct {
	mu   sync.Mutex
	cond *sync.Cond

	buffers []*CircularBuffer
	current int
	ready   []Range

	exitRequested bool
	flushes       uint64

	bufferCount int
	bufferSize  int
	inline      func(ranges []Range)
}

// CommandBufferQueue hands circular buffers to the recording (producer) side and committed ranges
// to the executing (consumer) side.
//
// Exactly one buffer is current at a time and only the producer writes to it. Flush publishes
// the current buffer's commands and rotates to the next buffer, blocking until the consumer has
// released everything previously written there. The consumer blocks in WaitForCommands until
// ranges are ready and releases each range after executing it.
type CommandBufferQueue interface {
	// CircularBuffer returns the buffer currently assigned as the write target.
	//
	// Returns:
	//   - *CircularBuffer: the current buffer
	CircularBuffer() *CircularBuffer

	// Flush publishes the current buffer's written range and rotates to the next buffer.
	// Blocks until the next buffer has been fully released by the consumer. Producer only.
	Flush()

	// Commit publishes the current buffer's written range without rotating. The producer calls
	// it when the current buffer fills before a frame is complete.
	Commit()

	// WaitForCommands blocks until at least one range is ready or exit was requested, then
	// returns every ready range in publish order. An empty result means exit was requested and
	// nothing is left to execute.
	//
	// Returns:
	//   - []Range: the ready ranges
	WaitForCommands() []Range

	// ReleaseBuffer returns a consumed range's storage and unblocks waiting producers.
	//
	// Parameters:
	//   - r: the executed range
	ReleaseBuffer(r Range)

	// RequestExit wakes the consumer so it terminates once the ready ranges are drained.
	RequestExit()

	// ExitRequested reports whether RequestExit was called.
	//
	// Returns:
	//   - bool: true after RequestExit
	ExitRequested() bool

	// Close fails every blocked or future write and wait on the queue's buffers.
	// Used when the consumer can no longer drain.
	Close()

	// Buffers returns the circular buffers owned by the queue.
	//
	// Returns:
	//   - []*CircularBuffer: the buffers in rotation order
	Buffers() []*CircularBuffer

	// ReadyCount returns the number of ranges waiting for the consumer.
	//
	// Returns:
	//   - int: the ready range count
	ReadyCount() int

	// Flushes returns the number of non-empty ranges published so far.
	//
	// Returns:
	//   - uint64: the published range count
	Flushes() uint64
}

var _ CommandBufferQueue = &commandBufferQueue{}

// NewCommandBufferQueue creates a queue with MaxBackbufferCount buffers of
// MinCommandBuffersSizeInMB each unless overridden by options.
//
// Parameters:
//   - options: functional options for the queue
//
// Returns:
//   - CommandBufferQueue: the new queue
func NewCommandBufferQueue(options ...CommandBufferQueueBuilderOption) CommandBufferQueue {
	q := &commandBufferQueue{
		bufferCount: MaxBackbufferCount,
		bufferSize:  MinCommandBuffersSizeInMB << 20,
	}
	q.cond = sync.NewCond(&q.mu)

	for _, opt := range options {
		opt(q)
	}

	q.bufferCount = max(q.bufferCount, 2)
	q.bufferSize = max(q.bufferSize, MinBufferSize)
	q.buffers = make([]*CircularBuffer, q.bufferCount)
	for i := range q.buffers {
		q.buffers[i] = NewCircularBuffer(i, q.bufferSize)
	}

	return q
}

func (q *commandBufferQueue) CircularBuffer() *CircularBuffer {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buffers[q.current]
}

func (q *commandBufferQueue) Flush() {
	current := q.CircularBuffer()
	if !q.publish(current.Commit()) {
		return
	}

	q.mu.Lock()
	next := (q.current + 1) % len(q.buffers)
	q.mu.Unlock()

	if !q.buffers[next].WaitDrained() {
		return
	}

	q.mu.Lock()
	q.current = next
	q.mu.Unlock()
}

func (q *commandBufferQueue) Commit() {
	q.publish(q.CircularBuffer().Commit())
}

func (q *commandBufferQueue) WaitForCommands() []Range {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.ready) == 0 && !q.exitRequested {
		q.cond.Wait()
	}
	ready := q.ready
	q.ready = nil
	return ready
}

func (q *commandBufferQueue) ReleaseBuffer(r Range) {
	r.buffer.Release(r)
}

func (q *commandBufferQueue) RequestExit() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.exitRequested = true
	q.cond.Broadcast()
}

func (q *commandBufferQueue) ExitRequested() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.exitRequested
}

func (q *commandBufferQueue) Close() {
	q.RequestExit()
	for _, b := range q.buffers {
		b.Close()
	}
}

func (q *commandBufferQueue) Buffers() []*CircularBuffer {
	return q.buffers
}

func (q *commandBufferQueue) ReadyCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready)
}

func (q *commandBufferQueue) Flushes() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.flushes
}

// publish appends a committed range to the ready FIFO and wakes the consumer. With an inline
// consumer the ready ranges are executed on the caller's goroutine before publish returns.
// Empty ranges are dropped.
func (q *commandBufferQueue) publish(r Range) bool {
	if r.Empty() {
		return false
	}

	q.mu.Lock()
	q.ready = append(q.ready, r)
	q.flushes++
	q.cond.Broadcast()
	var ready []Range
	if q.inline != nil {
		ready = q.ready
		q.ready = nil
	}
	q.mu.Unlock()

	if len(ready) > 0 {
		q.inline(ready)
	}
	return true
}
