package profiler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/gorilla/websocket"
)

// StatsServer pushes published Snapshots as JSON to the websocket clients connected at /ws. A
// new client receives the latest snapshot right away.
//
// Publish never blocks on the network: snapshots are handed to a sender goroutine through a
// one-slot mailbox, and a snapshot still waiting there when the next one arrives is dropped.
type StatsServer struct {
	addr     string
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
	last    atomic.Pointer[Snapshot]

	pending  chan Snapshot
	dropped  atomic.Uint64
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	srv      *http.Server
	listener net.Listener
}

var _ Publisher = &StatsServer{}

// NewStatsServer creates a StatsServer that will listen on addr once started.
//
// Parameters:
//   - addr: the TCP address, for example "127.0.0.1:8090"; port 0 picks a free port
//
// Returns:
//   - *StatsServer: the stopped server
func NewStatsServer(addr string) *StatsServer {
	s := &StatsServer{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
		pending: make(chan Snapshot, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.send()
	return s
}

// Handler returns the HTTP handler serving the websocket endpoint at /ws.
func (s *StatsServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

// Start binds the listener and serves in a background goroutine.
//
// Returns:
//   - error: an error if the address could not be bound
func (s *StatsServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("stats server listen %s: %w", s.addr, err)
	}
	s.listener = ln
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.Logger().Error("[Profiler] stats server stopped", "error", err)
		}
	}()
	common.Logger().Info("[Profiler] stats server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *StatsServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Close stops the sender, disconnects every client and shuts the HTTP server down.
//
// Parameters:
//   - ctx: bounds the graceful shutdown
//
// Returns:
//   - error: the shutdown error, if any
func (s *StatsServer) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.quit) })
	s.mu.Lock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Clients returns the number of connected websocket clients.
func (s *StatsServer) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Publish queues snap for every client and returns immediately, replacing a snapshot that has
// not been sent yet.
func (s *StatsServer) Publish(snap Snapshot) {
	s.last.Store(&snap)
	for {
		select {
		case s.pending <- snap:
			return
		default:
		}
		select {
		case stale := <-s.pending:
			s.dropped.Add(1)
			common.Logger().Debug("[Profiler] stale snapshot dropped", "frames", stale.Frames)
		default:
		}
	}
}

// Dropped returns the number of snapshots replaced before they were sent.
func (s *StatsServer) Dropped() uint64 {
	return s.dropped.Load()
}

// send writes queued snapshots until Close.
func (s *StatsServer) send() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case snap := <-s.pending:
			s.broadcast(snap)
		}
	}
}

// broadcast writes snap to every client. Clients whose write fails are dropped.
func (s *StatsServer) broadcast(snap Snapshot) {
	s.mu.RLock()
	clients := make(map[*websocket.Conn]*sync.Mutex, len(s.clients))
	for conn, wmu := range s.clients {
		clients[conn] = wmu
	}
	s.mu.RUnlock()

	var failed []*websocket.Conn
	for conn, wmu := range clients {
		wmu.Lock()
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		err := conn.WriteJSON(snap)
		wmu.Unlock()
		if err != nil {
			failed = append(failed, conn)
		}
	}

	if len(failed) == 0 {
		return
	}
	s.mu.Lock()
	for _, conn := range failed {
		conn.Close()
		delete(s.clients, conn)
	}
	s.mu.Unlock()
	common.Logger().Debug("[Profiler] dropped stats clients", "count", len(failed))
}

func (s *StatsServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		common.Logger().Warn("[Profiler] websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	wmu := &sync.Mutex{}
	s.mu.Lock()
	s.clients[conn] = wmu
	last := s.last.Load()
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
	}()

	if last != nil {
		wmu.Lock()
		err := conn.WriteJSON(last)
		wmu.Unlock()
		if err != nil {
			return
		}
	}

	// Clients never send anything meaningful; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
