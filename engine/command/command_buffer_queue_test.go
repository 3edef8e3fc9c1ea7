package command

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// consumer drains a queue on its own goroutine the way the render loop does.
type consumer struct {
	q    CommandBufferQueue
	gate chan struct{}

	mu   sync.Mutex
	seen []uint64

	done chan struct{}
}

func startConsumer(q CommandBufferQueue, gated bool) *consumer {
	c := &consumer{q: q, done: make(chan struct{})}
	if gated {
		c.gate = make(chan struct{})
	}
	go c.run()
	return c
}

func (c *consumer) run() {
	defer close(c.done)
	for {
		ranges := c.q.WaitForCommands()
		if len(ranges) == 0 {
			return
		}
		for _, r := range ranges {
			if c.gate != nil {
				<-c.gate
			}
			r.Each(func(cmd Command) {
				if m, ok := cmd.(CmdMarker); ok {
					c.mu.Lock()
					c.seen = append(c.seen, m.Seq)
					c.mu.Unlock()
				}
			})
			c.q.ReleaseBuffer(r)
		}
	}
}

func (c *consumer) observed() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64(nil), c.seen...)
}

func record(t *testing.T, q CommandBufferQueue, cmd Command) {
	t.Helper()
	buf := q.CircularBuffer()
	if buf.Push(cmd) {
		return
	}
	q.Commit()
	require.True(t, buf.WaitFree(cmd.Size()))
	require.True(t, buf.Push(cmd))
}

func TestQueueDefaults(t *testing.T) {
	q := NewCommandBufferQueue()
	require.Len(t, q.Buffers(), MaxBackbufferCount)
	total := 0
	for _, b := range q.Buffers() {
		assert.Equal(t, MinCommandBuffersSizeInMB<<20, b.Capacity())
		total += b.Capacity()
	}
	assert.Equal(t, CommandBufferSizeInMB<<20, total)
	assert.Same(t, q.Buffers()[0], q.CircularBuffer())
}

func TestQueueOptionsClamp(t *testing.T) {
	q := NewCommandBufferQueue(WithBufferCount(1), WithBufferSize(10))
	require.Len(t, q.Buffers(), 2)
	assert.Equal(t, MinBufferSize, q.Buffers()[0].Capacity())

	q = NewCommandBufferQueue(WithBufferCount(4), WithTotalSize(64<<10))
	require.Len(t, q.Buffers(), 4)
	assert.Equal(t, 16<<10, q.Buffers()[0].Capacity())
}

func TestQueuePreservesRecordingOrder(t *testing.T) {
	q := NewCommandBufferQueue(WithBufferCount(3), WithBufferSize(MinBufferSize))
	c := startConsumer(q, false)

	const n = 5000
	for i := range n {
		record(t, q, CmdMarker{Seq: uint64(i)})
	}
	q.Flush()
	q.RequestExit()

	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not exit")
	}

	seen := c.observed()
	require.Len(t, seen, n)
	for i, s := range seen {
		require.Equal(t, uint64(i), s)
	}
}

func TestQueueOrderAcrossFrames(t *testing.T) {
	q := NewCommandBufferQueue(WithBufferCount(2), WithBufferSize(MinBufferSize))
	c := startConsumer(q, false)

	seq := uint64(0)
	for range 50 {
		for range 10 {
			record(t, q, CmdMarker{Seq: seq})
			seq++
		}
		q.Flush()
	}
	q.RequestExit()
	<-c.done

	seen := c.observed()
	require.Len(t, seen, int(seq))
	for i := 1; i < len(seen); i++ {
		require.Less(t, seen[i-1], seen[i])
	}
}

func TestQueueFlushBlocksWhenBuffersExhausted(t *testing.T) {
	q := NewCommandBufferQueue(WithBufferCount(3), WithBufferSize(MinBufferSize))
	c := startConsumer(q, true)

	// Two flushes rotate into free buffers.
	for i := range 2 {
		record(t, q, CmdMarker{Seq: uint64(i)})
		q.Flush()
	}

	// The third flush rotates back to buffer 0, which the stalled consumer still owns.
	record(t, q, CmdMarker{Seq: 2})
	flushed := make(chan struct{})
	go func() {
		q.Flush()
		close(flushed)
	}()

	select {
	case <-flushed:
		t.Fatal("Flush returned while every buffer was owned by the consumer")
	case <-time.After(100 * time.Millisecond):
	}

	// Releasing exactly one range unblocks the producer.
	c.gate <- struct{}{}
	select {
	case <-flushed:
	case <-time.After(time.Second):
		t.Fatal("Flush did not unblock after one release")
	}
	assert.Equal(t, 0, q.CircularBuffer().ID())

	close(c.gate)
	q.RequestExit()
	<-c.done
	assert.Equal(t, []uint64{0, 1, 2}, c.observed())
}

func TestQueueNeverHandsBackUnconsumedBuffer(t *testing.T) {
	q := NewCommandBufferQueue(WithBufferCount(2), WithBufferSize(MinBufferSize))
	c := startConsumer(q, true)

	const sentinel = 0xDEADBEEF
	cmds := MinBufferSize / markerSize()
	for i := range cmds {
		require.True(t, q.CircularBuffer().Push(CmdMarker{Seq: sentinel, Label: "sentinel"}), "slot %d", i)
	}
	first := q.CircularBuffer()
	q.Flush()
	require.NotSame(t, first, q.CircularBuffer())

	record(t, q, CmdMarker{Seq: 1})
	reacquired := make(chan *CircularBuffer)
	go func() {
		q.Flush()
		reacquired <- q.CircularBuffer()
	}()

	select {
	case <-reacquired:
		t.Fatal("buffer handed back before its commands were consumed")
	case <-time.After(100 * time.Millisecond):
	}

	c.gate <- struct{}{}
	buf := <-reacquired
	require.Same(t, first, buf)
	assert.Zero(t, buf.Used())

	seen := c.observed()
	require.Len(t, seen, cmds)
	for _, s := range seen {
		assert.Equal(t, uint64(sentinel), s)
	}

	close(c.gate)
	q.RequestExit()
	<-c.done
}

func TestQueueExitDrainsReadyRanges(t *testing.T) {
	q := NewCommandBufferQueue(WithBufferCount(4), WithBufferSize(MinBufferSize))

	for i := range 3 {
		record(t, q, CmdMarker{Seq: uint64(i)})
		q.Flush()
	}
	assert.Equal(t, 3, q.ReadyCount())
	q.RequestExit()
	assert.True(t, q.ExitRequested())

	c := startConsumer(q, false)
	<-c.done
	assert.Equal(t, []uint64{0, 1, 2}, c.observed())
	assert.Empty(t, q.WaitForCommands())
}

func TestQueueEmptyFlushDoesNotRotate(t *testing.T) {
	q := NewCommandBufferQueue()
	before := q.CircularBuffer()
	q.Flush()
	assert.Same(t, before, q.CircularBuffer())
	assert.Zero(t, q.Flushes())
}

func TestQueueInlineConsumer(t *testing.T) {
	var seen []uint64
	var q CommandBufferQueue
	q = NewCommandBufferQueue(
		WithBufferCount(2),
		WithBufferSize(MinBufferSize),
		WithInlineConsumer(func(ranges []Range) {
			for _, r := range ranges {
				r.Each(func(c Command) {
					seen = append(seen, c.(CmdMarker).Seq)
				})
				q.ReleaseBuffer(r)
			}
		}),
	)

	for i := range 1000 {
		record(t, q, CmdMarker{Seq: uint64(i)})
	}
	q.Flush()

	require.Len(t, seen, 1000)
	for i, s := range seen {
		require.Equal(t, uint64(i), s)
	}
	assert.Zero(t, q.ReadyCount())
}

func TestQueueCloseUnblocksProducer(t *testing.T) {
	q := NewCommandBufferQueue(WithBufferCount(2), WithBufferSize(MinBufferSize))
	record(t, q, CmdMarker{})
	q.Flush()
	record(t, q, CmdMarker{})

	flushed := make(chan struct{})
	go func() {
		q.Flush()
		close(flushed)
	}()

	q.Close()
	select {
	case <-flushed:
	case <-time.After(time.Second):
		t.Fatal("Close did not unblock Flush")
	}
}
