package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rt/common"
)

var (
	// ErrStreamerBusy is returned by Request when the number of undrained requests reached the
	// queue size.
	ErrStreamerBusy = errors.New("texture streamer queue is full")

	// ErrStreamerClosed is returned by Request after Close.
	ErrStreamerClosed = errors.New("texture streamer is closed")
)

// Request asks the Streamer to load one texture. Data is decoded when set, otherwise Path is
// read through the Loader.
type Request struct {
	Name string
	Path string
	Data []byte

	// Tag is returned untouched in the Result.
	Tag any
}

// Result is the completion of one Request.
type Result struct {
	Name    string
	Texture *common.TextureData
	Err     error
	Tag     any
	Elapsed time.Duration
}

// streamer is the implementation of the Streamer interface.
type streamer struct {
	loader Loader
	pool   worker.DynamicWorkerPool

	workers   int
	queueSize int

	completions chan Result
	nextID      atomic.Int64
	pending     atomic.Int64
	inflight    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Streamer decodes textures on a worker pool. Results are buffered on a completion channel
// that the owner drains on its own goroutine, so GPU uploads stay on the main thread.
type Streamer interface {
	// Request queues a load. It never blocks.
	//
	// Parameters:
	//   - req: the texture to load
	//
	// Returns:
	//   - error: ErrStreamerBusy or ErrStreamerClosed
	Request(req Request) error

	// Completions exposes the completion channel for select loops.
	Completions() <-chan Result

	// Drain hands every completed result to fn without blocking.
	//
	// Parameters:
	//   - fn: called once per result, in completion order
	//
	// Returns:
	//   - int: the number of results drained
	Drain(fn func(Result)) int

	// Pending returns the number of requests whose result has not been drained yet.
	Pending() int

	// Wait blocks until every queued request has completed (not necessarily drained).
	//
	// Parameters:
	//   - ctx: bounds the wait
	//
	// Returns:
	//   - error: ctx.Err() when the context ends first
	Wait(ctx context.Context) error

	// Close rejects new requests, waits for running decodes and stops the pool. Undrained
	// results stay readable.
	Close()
}

var _ Streamer = &streamer{}

// NewStreamer creates a Streamer backed by l. Defaults to four workers and a queue of 64.
//
// Parameters:
//   - l: the loader that decodes and caches textures
//   - options: variadic list of StreamerBuilderOption functions to configure the Streamer
//
// Returns:
//   - Streamer: the running streamer
func NewStreamer(l Loader, options ...StreamerBuilderOption) Streamer {
	s := &streamer{
		loader:    l,
		workers:   4,
		queueSize: 64,
	}
	for _, opt := range options {
		opt(s)
	}
	// Undrained results never exceed queueSize, so workers never block on send.
	s.completions = make(chan Result, s.queueSize)
	s.pool = worker.NewDynamicWorkerPool(s.workers, s.queueSize, time.Second)
	return s
}

func (s *streamer) Request(req Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamerClosed
	}
	if s.pending.Load() >= int64(s.queueSize) {
		return ErrStreamerBusy
	}
	s.pending.Add(1)
	s.inflight.Add(1)

	s.pool.SubmitTask(worker.Task{
		ID:      int(s.nextID.Add(1)),
		Payload: req,
		Do: func() (any, error) {
			defer s.inflight.Done()
			res := s.load(req)
			s.completions <- res
			return res, res.Err
		},
	})
	return nil
}

func (s *streamer) load(req Request) Result {
	start := time.Now()
	res := Result{Name: req.Name, Tag: req.Tag}
	switch {
	case req.Data != nil:
		res.Texture, res.Err = s.loader.LoadTexture(req.Name, req.Data)
	case req.Path != "":
		res.Texture, res.Err = s.loader.LoadFile(req.Path)
	default:
		res.Err = errors.New("texture request " + req.Name + " has neither data nor path")
	}
	res.Elapsed = time.Since(start)
	if res.Err != nil {
		common.Logger().Warn("[Loader] streamed texture failed", "name", req.Name, "error", res.Err)
	}
	return res
}

func (s *streamer) Completions() <-chan Result {
	return s.completions
}

func (s *streamer) Drain(fn func(Result)) int {
	n := 0
	for {
		select {
		case res := <-s.completions:
			s.pending.Add(-1)
			fn(res)
			n++
		default:
			return n
		}
	}
}

func (s *streamer) Pending() int {
	return int(s.pending.Load())
}

func (s *streamer) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *streamer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.inflight.Wait()
	s.pool.Stop()
	common.Logger().Debug("[Loader] streamer closed", "undrained", s.Pending())
}
