package shader

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// watcher is the implementation of the Watcher interface.
type watcher struct {
	mu      sync.Mutex
	fs      *fsnotify.Watcher
	files   map[string]bool
	dirs    map[string]bool
	last    map[string]time.Time
	changes chan string
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// Watcher reports edits to shader source files so pipelines can be rebuilt while running.
// Changes are delivered on a channel; the receiver decides on which goroutine to recompile.
type Watcher interface {
	// Add starts watching a file. Its directory is watched so editors that replace files on
	// save are still seen.
	//
	// Parameters:
	//   - path: the shader file
	//
	// Returns:
	//   - error: an error if the directory cannot be watched
	Add(path string) error

	// Changes delivers the cleaned path of every modified watched file. Bursts of events for
	// the same file are coalesced.
	//
	// Returns:
	//   - <-chan string: the change channel, closed by Close
	Changes() <-chan string

	// Close stops watching and closes the change channel.
	//
	// Returns:
	//   - error: an error from the underlying watcher
	Close() error
}

var _ Watcher = &watcher{}

// NewWatcher creates a Watcher and starts its event goroutine.
//
// Returns:
//   - Watcher: the watcher
//   - error: an error if the platform watcher cannot be created
func NewWatcher() (Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{
		fs:      fs,
		files:   make(map[string]bool),
		dirs:    make(map[string]bool),
		last:    make(map[string]time.Time),
		changes: make(chan string, 16),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.dirs[dir] {
		if err := w.fs.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = true
	}
	w.files[abs] = true
	return nil
}

func (w *watcher) Changes() <-chan string {
	return w.changes
}

func (w *watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
		close(w.changes)
	})
	return err
}

func (w *watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) {
				w.notify(filepath.Clean(ev.Name))
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			common.Logger().Warn("[Shader] watcher error", "error", err)
		}
	}
}

func (w *watcher) notify(path string) {
	w.mu.Lock()
	if !w.files[path] {
		w.mu.Unlock()
		return
	}
	now := time.Now()
	if now.Sub(w.last[path]) < watchDebounce {
		w.mu.Unlock()
		return
	}
	w.last[path] = now
	w.mu.Unlock()

	select {
	case w.changes <- path:
	case <-w.done:
	default:
		common.Logger().Warn("[Shader] change dropped, receiver is not draining", "path", path)
	}
}
