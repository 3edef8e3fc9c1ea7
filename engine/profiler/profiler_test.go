package profiler

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderqueue"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

type capture struct {
	snaps []Snapshot
}

func (c *capture) Publish(s Snapshot) { c.snaps = append(c.snaps, s) }

func TestTickEmitsOncePerInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	pub := &capture{}
	p := NewProfiler(
		WithClock(clock.now),
		WithInterval(time.Second),
		WithMemStats(false),
		WithPublisher(pub),
		WithPublisher(nil),
	)

	sample := Sample{
		Delta:    10 * time.Millisecond,
		Draw:     renderqueue.DrawStats{Records: 4, Skipped: 1},
		Renderer: renderer.Stats{Frame: 7, CompletedFrame: 6},
	}
	for range 99 {
		clock.t = clock.t.Add(10 * time.Millisecond)
		assert.False(t, p.Tick(sample))
	}
	sample.Delta = 30 * time.Millisecond
	clock.t = clock.t.Add(10 * time.Millisecond)
	require.True(t, p.Tick(sample))

	require.Len(t, pub.snaps, 1)
	s := pub.snaps[0]
	assert.Equal(t, uint64(100), s.Frames)
	assert.InDelta(t, 100.0, s.FPS, 0.001)
	assert.InDelta(t, 10.2, s.FrameTimeMs, 0.001)
	assert.InDelta(t, 30.0, s.MaxFrameMs, 0.001)
	assert.Equal(t, 4, s.Records)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, uint64(7), s.RendererFrame)
	assert.Zero(t, s.HeapMB)
	assert.Equal(t, s, p.Last())

	clock.t = clock.t.Add(500 * time.Millisecond)
	assert.False(t, p.Tick(sample))
	assert.Equal(t, uint64(101), p.Frames())
}

func TestTickReadsMemStats(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithInterval(time.Millisecond))
	clock.t = clock.t.Add(time.Second)
	require.True(t, p.Tick(Sample{Delta: time.Second}))
	assert.Positive(t, p.Last().HeapMB)
	assert.Positive(t, p.Last().SysMB)
}

func newStatsServer(t *testing.T) *StatsServer {
	t.Helper()
	s := NewStatsServer("127.0.0.1:0")
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Close(ctx)
	})
	return s
}

func dialStats(t *testing.T, s *StatsServer) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestStatsServerBroadcasts(t *testing.T) {
	s := newStatsServer(t)
	conn := dialStats(t, s)
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 5*time.Millisecond)

	s.Publish(Snapshot{Frames: 42, FPS: 60, LoopState: "Idle"})

	var got Snapshot
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, uint64(42), got.Frames)
	assert.Equal(t, 60.0, got.FPS)
	assert.Equal(t, "Idle", got.LoopState)
}

func TestStatsServerSendsLatestOnConnect(t *testing.T) {
	s := newStatsServer(t)
	s.Publish(Snapshot{Frames: 5})

	conn := dialStats(t, s)
	var got Snapshot
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, uint64(5), got.Frames)
}

func TestStatsServerDropsClosedClients(t *testing.T) {
	s := newStatsServer(t)
	conn := dialStats(t, s)
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return s.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStatsServerStartAndClose(t *testing.T) {
	s := newStatsServer(t)
	require.NoError(t, s.Start())
	assert.NotEqual(t, "127.0.0.1:0", s.Addr())

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+s.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Close(ctx))
	assert.Zero(t, s.Clients())
}

func TestStatsServerPublishDoesNotWaitForClients(t *testing.T) {
	s := newStatsServer(t)
	conn := dialStats(t, s)
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 5*time.Millisecond)

	// Hold every client's write lock so the sender stalls mid-broadcast.
	s.mu.RLock()
	var locks []*sync.Mutex
	for _, wmu := range s.clients {
		locks = append(locks, wmu)
	}
	s.mu.RUnlock()
	for _, wmu := range locks {
		wmu.Lock()
	}

	start := time.Now()
	for i := range 100 {
		s.Publish(Snapshot{Frames: uint64(i + 1)})
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.NotZero(t, s.Dropped())

	for _, wmu := range locks {
		wmu.Unlock()
	}

	received := 0
	var got Snapshot
	for got.Frames != 100 {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		require.NoError(t, conn.ReadJSON(&got))
		received++
	}
	assert.Less(t, received, 100, "stale snapshots are dropped")
}

func TestStatsServerPublishAfterClose(t *testing.T) {
	s := NewStatsServer("127.0.0.1:0")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))
	require.NoError(t, s.Close(ctx))

	done := make(chan struct{})
	go func() {
		s.Publish(Snapshot{Frames: 1})
		s.Publish(Snapshot{Frames: 2})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked after Close")
	}
}
