package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func markerSize() int {
	return CmdMarker{}.Size()
}

func TestCommandSizes(t *testing.T) {
	cmds := []Command{
		CmdBeginFrame{}, CmdPrepareFrame{}, CmdUpload{}, CmdSubmitFrame{}, CmdEndFrame{},
		CmdMakeCurrent{}, CmdCommit{}, CmdResize{}, CmdBeginRendering{}, CmdEndRendering{},
		CmdBindPipelineState{}, CmdBindUniforms{}, CmdBindVertexBuffer{}, CmdBindIndexBuffer{}, CmdBindDescriptorSet{},
		CmdDraw{}, CmdDrawIndexed{}, CmdDrawIndirect{}, CmdDispatch{}, CmdDrawBatch{}, CmdMarker{},
	}
	for _, c := range cmds {
		assert.GreaterOrEqual(t, c.Size(), HeaderSize, c.Type().String())
		assert.Zero(t, c.Size()%8, c.Type().String())
		assert.NotEqual(t, "Unknown", c.Type().String())
	}
	assert.Equal(t, HeaderSize, CmdEndRendering{}.Size())
	assert.Equal(t, "Unknown", CommandType(200).String())
}

func TestCircularBufferPushCommitRelease(t *testing.T) {
	b := NewCircularBuffer(0, 16*markerSize())

	for i := range 4 {
		require.True(t, b.Push(CmdMarker{Seq: uint64(i)}))
	}
	assert.Equal(t, 4, b.Pending())
	assert.Equal(t, 4*markerSize(), b.Used())

	r := b.Commit()
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, 4*markerSize(), r.Bytes())
	assert.Zero(t, b.Pending())

	var seen []uint64
	r.Each(func(c Command) {
		seen = append(seen, c.(CmdMarker).Seq)
	})
	assert.Equal(t, []uint64{0, 1, 2, 3}, seen)
	assert.Equal(t, uint64(2), r.At(2).(CmdMarker).Seq)

	b.Release(r)
	assert.Zero(t, b.Used())
	assert.Equal(t, b.Capacity(), b.Free())
}

func TestCircularBufferPushFailsWhenFull(t *testing.T) {
	b := NewCircularBuffer(0, 2*markerSize())

	require.True(t, b.Push(CmdMarker{Seq: 1}))
	require.True(t, b.Push(CmdMarker{Seq: 2}))
	assert.False(t, b.Push(CmdMarker{Seq: 3}))

	r := b.Commit()
	b.Release(r)
	assert.True(t, b.Push(CmdMarker{Seq: 3}))
}

func TestCircularBufferOversizedCommandPanics(t *testing.T) {
	b := NewCircularBuffer(0, MinBufferSize)
	huge := CmdMarker{}
	small := NewCircularBuffer(1, HeaderSize)
	assert.Panics(t, func() { small.Push(huge) })
	assert.NotPanics(t, func() { b.Push(huge) })
}

func TestCircularBufferWaitFreeBlocksUntilRelease(t *testing.T) {
	b := NewCircularBuffer(0, 2*markerSize())
	require.True(t, b.Push(CmdMarker{Seq: 1}))
	require.True(t, b.Push(CmdMarker{Seq: 2}))
	r := b.Commit()

	done := make(chan bool)
	go func() {
		done <- b.WaitFree(markerSize())
	}()

	select {
	case <-done:
		t.Fatal("WaitFree returned while the buffer was full")
	case <-time.After(50 * time.Millisecond):
	}

	b.Release(r)
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("WaitFree did not return after release")
	}
}

func TestCircularBufferCloseWakesWaiters(t *testing.T) {
	b := NewCircularBuffer(0, markerSize())
	require.True(t, b.Push(CmdMarker{}))

	done := make(chan bool)
	go func() {
		done <- b.WaitDrained()
	}()

	b.Close()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("WaitDrained did not return after Close")
	}
	assert.False(t, b.Push(CmdMarker{}))
}

func TestCircularBufferReleaseOutOfOrderPanics(t *testing.T) {
	b := NewCircularBuffer(0, 8*markerSize())
	require.True(t, b.Push(CmdMarker{Seq: 1}))
	first := b.Commit()
	require.True(t, b.Push(CmdMarker{Seq: 2}))
	second := b.Commit()

	assert.Panics(t, func() { b.Release(second) })
	b.Release(first)
	assert.NotPanics(t, func() { b.Release(second) })
}

func TestCircularBufferGrowKeepsCommittedRanges(t *testing.T) {
	count := initialSlotCount * 3
	b := NewCircularBuffer(0, count*markerSize())

	for i := range initialSlotCount {
		require.True(t, b.Push(CmdMarker{Seq: uint64(i)}))
	}
	first := b.Commit()

	for i := initialSlotCount; i < count; i++ {
		require.True(t, b.Push(CmdMarker{Seq: uint64(i)}))
	}
	second := b.Commit()

	next := uint64(0)
	for _, r := range []Range{first, second} {
		r.Each(func(c Command) {
			assert.Equal(t, next, c.(CmdMarker).Seq)
			next++
		})
		b.Release(r)
	}
	assert.Equal(t, uint64(count), next)
	assert.Zero(t, b.Used())
}

func TestCircularBufferWrapsAround(t *testing.T) {
	b := NewCircularBuffer(0, 4*markerSize())

	seq := uint64(0)
	for round := range 10 {
		for range 3 {
			require.True(t, b.Push(CmdMarker{Seq: seq}), "round %d", round)
			seq++
		}
		r := b.Commit()
		expected := seq - 3
		r.Each(func(c Command) {
			assert.Equal(t, expected, c.(CmdMarker).Seq)
			expected++
		})
		b.Release(r)
	}
}
