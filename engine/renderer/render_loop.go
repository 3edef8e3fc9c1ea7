package renderer

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/command"
	"github.com/Carmen-Shannon/oxy-rt/internal/affinity"
)

// LoopState is the lifecycle state of the render loop.
type LoopState int32

const (
	// LoopIdle means the loop is waiting for committed commands (or has not started).
	LoopIdle LoopState = iota

	// LoopRendering means the loop is executing ranges.
	LoopRendering

	// LoopExiting means exit was requested and the queue is drained.
	LoopExiting

	// LoopTerminated means the loop goroutine has returned.
	LoopTerminated
)

var loopStateNames = [...]string{
	LoopIdle:       "Idle",
	LoopRendering:  "Rendering",
	LoopExiting:    "Exiting",
	LoopTerminated: "Terminated",
}

func (s LoopState) String() string {
	if int(s) < len(loopStateNames) {
		return loopStateNames[s]
	}
	return "Unknown"
}

// renderLoop consumes the command queue and executes each command on a Device.
type renderLoop struct {
	device Device
	queue  command.CommandBufferQueue
	thread *affinity.Thread

	state     atomic.Int32
	executed  atomic.Uint64
	startOnce sync.Once
	started   atomic.Bool
	done      chan struct{}

	// completed is the last frame whose EndFrame was executed, -1 before the first.
	mu        sync.Mutex
	cond      *sync.Cond
	completed int64

	fatal    func(v any)
	observer func(cmd command.Command)

	batch batchState
}

// batchState elides redundant binds while a DrawBatch is expanded.
type batchState struct {
	pipeline command.PipelineHandle
	uniforms command.UniformSet
	textures command.DescriptorSetHandle
	geometry command.Geometry
	bound    bool
}

func newRenderLoop(device Device, queue command.CommandBufferQueue, fatal func(any), observer func(command.Command)) *renderLoop {
	l := &renderLoop{
		device:    device,
		queue:     queue,
		thread:    affinity.NewThread("render"),
		done:      make(chan struct{}),
		completed: -1,
		fatal:     fatal,
		observer:  observer,
	}
	l.cond = sync.NewCond(&l.mu)
	if l.fatal == nil {
		l.fatal = func(v any) { panic(v) }
	}
	return l
}

// start launches the loop goroutine once.
func (l *renderLoop) start() {
	l.startOnce.Do(func() {
		l.started.Store(true)
		go l.run()
	})
}

func (l *renderLoop) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	l.thread.Bind()
	defer close(l.done)

	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("[Renderer] render loop panicked", "panic", r)
			l.terminate()
			l.queue.Close()
			l.fatal(fmt.Errorf("render loop: %v", r))
		}
	}()

	common.Logger().Info("[Renderer] render loop started", "thread", l.thread.ID())
	for {
		l.setState(LoopIdle)
		ranges := l.queue.WaitForCommands()
		if len(ranges) == 0 {
			l.setState(LoopExiting)
			break
		}
		l.execute(ranges)
	}
	l.terminate()
	common.Logger().Info("[Renderer] render loop terminated", "commands", l.executed.Load())
}

// executeInline runs ranges on the caller's goroutine. Used as the single-loop queue consumer.
func (l *renderLoop) executeInline(ranges []command.Range) {
	if l.thread.ID() == 0 {
		l.thread.Bind()
	}
	l.execute(ranges)
	l.setState(LoopIdle)
}

func (l *renderLoop) execute(ranges []command.Range) {
	l.setState(LoopRendering)
	l.device.BeginRender()
	for _, r := range ranges {
		r.Each(l.exec)
		l.queue.ReleaseBuffer(r)
	}
	l.device.EndRender()
}

func (l *renderLoop) exec(cmd command.Command) {
	l.executed.Add(1)
	if l.observer != nil {
		l.observer(cmd)
	}

	d := l.device
	switch c := cmd.(type) {
	case command.CmdBeginFrame:
		d.BeginFrame(c)
	case command.CmdPrepareFrame:
		d.PrepareFrame(c)
	case command.CmdUpload:
		d.Upload(c)
	case command.CmdSubmitFrame:
		d.SubmitFrame(c)
	case command.CmdEndFrame:
		d.EndFrame(c)
		l.complete(int64(c.Frame))
	case command.CmdMakeCurrent:
		d.MakeCurrent(c)
	case command.CmdCommit:
		d.Commit(c)
	case command.CmdResize:
		d.Resize(c)
	case command.CmdBeginRendering:
		d.BeginRendering(c)
	case command.CmdEndRendering:
		d.EndRendering()
	case command.CmdBindPipelineState:
		d.BindPipelineState(c)
	case command.CmdBindUniforms:
		d.BindUniforms(c)
	case command.CmdBindVertexBuffer:
		d.BindVertexBuffer(c)
	case command.CmdBindIndexBuffer:
		d.BindIndexBuffer(c)
	case command.CmdBindDescriptorSet:
		d.BindDescriptorSet(c)
	case command.CmdDraw:
		d.Draw(c)
	case command.CmdDrawIndexed:
		d.DrawIndexed(c)
	case command.CmdDrawIndirect:
		d.DrawIndirect(c)
	case command.CmdDispatch:
		d.Dispatch(c)
	case command.CmdDrawBatch:
		l.drawBatch(c)
	case command.CmdMarker:
		d.Marker(c)
	default:
		panic(fmt.Sprintf("render loop: unhandled command %s", cmd.Type()))
	}
}

// drawBatch expands a HwRenderQueue batch into device calls in record order.
func (l *renderLoop) drawBatch(c command.CmdDrawBatch) {
	d := l.device
	l.batch = batchState{}
	for i := range c.Records {
		rec := &c.Records[i]

		if !l.batch.bound || rec.Pipeline != l.batch.pipeline {
			d.BindPipelineState(command.CmdBindPipelineState{Pipeline: rec.Pipeline})
			l.batch.pipeline = rec.Pipeline
		}
		for slot, u := range rec.Uniforms {
			if !u.Valid() || (l.batch.bound && u == l.batch.uniforms[slot]) {
				continue
			}
			d.BindUniforms(command.CmdBindUniforms{Slot: command.UniformSlot(slot), Range: u})
			l.batch.uniforms[slot] = u
		}
		if !l.batch.bound || rec.Textures != l.batch.textures {
			d.BindDescriptorSet(command.CmdBindDescriptorSet{Set: rec.Textures})
			l.batch.textures = rec.Textures
		}

		g := rec.Geometry
		if !l.batch.bound || g != l.batch.geometry {
			d.BindVertexBuffer(command.CmdBindVertexBuffer{Buffer: g.VertexBuffer, Offset: g.VertexOffset})
			if g.Indexed() {
				d.BindIndexBuffer(command.CmdBindIndexBuffer{Buffer: g.IndexBuffer, Offset: g.IndexOffset, Format: g.IndexFormat})
			}
			l.batch.geometry = g
		}
		l.batch.bound = true

		instances := max(rec.InstanceCount, 1)
		if g.Indexed() {
			d.DrawIndexed(command.CmdDrawIndexed{IndexCount: g.IndexCount, InstanceCount: instances, FirstInstance: rec.InstanceOffset})
		} else {
			d.Draw(command.CmdDraw{VertexCount: g.VertexCount, InstanceCount: instances, FirstInstance: rec.InstanceOffset})
		}
	}
}

func (l *renderLoop) complete(frame int64) {
	l.mu.Lock()
	if frame > l.completed {
		l.completed = frame
	}
	l.cond.Broadcast()
	l.mu.Unlock()
}

func (l *renderLoop) terminate() {
	l.mu.Lock()
	l.state.Store(int32(LoopTerminated))
	l.cond.Broadcast()
	l.mu.Unlock()
}

// waitFrame blocks until frame has been executed or the loop terminated.
func (l *renderLoop) waitFrame(frame int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.completed < frame && LoopState(l.state.Load()) != LoopTerminated {
		l.cond.Wait()
	}
}

func (l *renderLoop) completedFrame() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.completed
}

func (l *renderLoop) setState(s LoopState) {
	if LoopState(l.state.Load()) == LoopTerminated {
		return
	}
	l.state.Store(int32(s))
}

func (l *renderLoop) State() LoopState {
	return LoopState(l.state.Load())
}
