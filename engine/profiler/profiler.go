// Package profiler turns per-frame counters into periodic snapshots (frame rate, frame time,
// draw counts, queue state and Go heap statistics), logs them and hands them to publishers
// such as the websocket StatsServer.
package profiler

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderqueue"
)

// Sample is what the Framework reports for one frame.
type Sample struct {
	// Delta is the wall-clock time since the previous frame.
	Delta time.Duration

	// Draw sums the render queue statistics of every view rendered this frame.
	Draw renderqueue.DrawStats

	Renderer renderer.Stats
}

// Snapshot summarizes the frames of one reporting interval.
type Snapshot struct {
	Frames      uint64  `json:"frames"`
	FPS         float64 `json:"fps"`
	FrameTimeMs float64 `json:"frameTimeMs"`
	MaxFrameMs  float64 `json:"maxFrameMs"`

	Renderables int `json:"renderables"`
	Batches     int `json:"batches"`
	Records     int `json:"records"`
	Indirect    int `json:"indirect"`
	Skipped     int `json:"skipped"`

	RendererFrame  uint64 `json:"rendererFrame"`
	CompletedFrame int64  `json:"completedFrame"`
	ReadyRanges    int    `json:"readyRanges"`
	Commands       uint64 `json:"commands"`
	LoopState      string `json:"loopState"`
	ConstantBytes  int    `json:"constantBytes"`

	HeapMB      float64 `json:"heapMB"`
	AllocRateMB float64 `json:"allocRateMBps"`
	SysMB       float64 `json:"sysMB"`
	GCCount     uint32  `json:"gcCount"`
	LastPauseUs uint64  `json:"lastPauseUs"`
	MaxPauseUs  uint64  `json:"maxPauseUs"`
}

// Publisher receives every Snapshot the Profiler produces.
type Publisher interface {
	Publish(s Snapshot)
}

// Profiler accumulates frame samples and emits a Snapshot once per interval. Tick is called
// from the main loop only; Last is safe from any goroutine.
type Profiler struct {
	interval   time.Duration
	now        func() time.Time
	memStats   bool
	publishers []Publisher

	frames      uint64
	windowStart time.Time
	window      uint64
	frameTime   time.Duration
	maxFrame    time.Duration

	mem            runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	mu   sync.Mutex
	last Snapshot
}

// NewProfiler creates a Profiler reporting once per second with heap statistics enabled.
//
// Parameters:
//   - options: variadic list of ProfilerBuilderOption functions to configure the profiler
//
// Returns:
//   - *Profiler: the new profiler
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		interval: time.Second,
		now:      time.Now,
		memStats: true,
	}
	for _, opt := range options {
		opt(p)
	}
	p.windowStart = p.now()
	return p
}

// Tick records one frame and, when the interval has elapsed, builds, logs and publishes a
// Snapshot.
//
// Parameters:
//   - s: the frame's counters
//
// Returns:
//   - bool: true if a snapshot was emitted this tick
func (p *Profiler) Tick(s Sample) bool {
	p.frames++
	p.window++
	p.frameTime += s.Delta
	p.maxFrame = max(p.maxFrame, s.Delta)

	now := p.now()
	elapsed := now.Sub(p.windowStart)
	if elapsed < p.interval {
		return false
	}

	snap := Snapshot{
		Frames:         p.frames,
		FPS:            float64(p.window) / elapsed.Seconds(),
		FrameTimeMs:    ms(p.frameTime) / float64(p.window),
		MaxFrameMs:     ms(p.maxFrame),
		Renderables:    s.Draw.Renderables,
		Batches:        s.Draw.Batches,
		Records:        s.Draw.Records,
		Indirect:       s.Draw.Indirect,
		Skipped:        s.Draw.Skipped,
		RendererFrame:  s.Renderer.Frame,
		CompletedFrame: s.Renderer.CompletedFrame,
		ReadyRanges:    s.Renderer.ReadyRanges,
		Commands:       s.Renderer.CommandsExecuted,
		LoopState:      s.Renderer.LoopState.String(),
		ConstantBytes:  s.Renderer.ArenaUsed[0],
	}
	if p.memStats {
		p.readMemStats(&snap, elapsed)
	}

	common.Logger().Info("[Profiler] frame stats",
		"fps", snap.FPS,
		"frameMs", snap.FrameTimeMs,
		"maxFrameMs", snap.MaxFrameMs,
		"records", snap.Records,
		"skipped", snap.Skipped,
		"heapMB", snap.HeapMB,
		"allocRateMBps", snap.AllocRateMB,
		"gc", snap.GCCount,
	)

	p.mu.Lock()
	p.last = snap
	p.mu.Unlock()
	for _, pub := range p.publishers {
		pub.Publish(snap)
	}

	p.windowStart = now
	p.window = 0
	p.frameTime = 0
	p.maxFrame = 0
	return true
}

// readMemStats fills the heap fields. PauseNs is a ring of the last 256 GC pauses, so the
// maximum only covers collections that are still in it.
func (p *Profiler) readMemStats(snap *Snapshot, elapsed time.Duration) {
	runtime.ReadMemStats(&p.mem)
	snap.HeapMB = mb(p.mem.Alloc)
	snap.SysMB = mb(p.mem.Sys)
	snap.AllocRateMB = mb(p.mem.TotalAlloc-p.lastTotalAlloc) / elapsed.Seconds()
	snap.GCCount = p.mem.NumGC

	if gc := p.mem.NumGC; gc > 0 {
		snap.LastPauseUs = p.mem.PauseNs[(gc-1)%256] / 1000
		start := p.lastGCCount
		if gc-start > 256 {
			start = gc - 256
		}
		for i := start; i < gc; i++ {
			snap.MaxPauseUs = max(snap.MaxPauseUs, p.mem.PauseNs[i%256]/1000)
		}
	}
	p.lastGCCount = p.mem.NumGC
	p.lastTotalAlloc = p.mem.TotalAlloc
}

// Frames returns the number of frames ticked since creation.
func (p *Profiler) Frames() uint64 {
	return p.frames
}

// Last returns the most recent Snapshot, zero before the first interval elapsed.
func (p *Profiler) Last() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func mb(b uint64) float64 {
	return float64(b) / 1024 / 1024
}
