package tailer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"slurm-watch/internal/logging"
	"slurm-watch/internal/slurm"
)

var (
	// ErrAlreadyRunning is returned by Start when the tailer runs.
	ErrAlreadyRunning = errors.New("tailer already running")
	// ErrNotRunning is returned by Stop when the tailer is stopped.
	ErrNotRunning = errors.New("tailer not running")
)

// ChunkFunc receives newly appended file content for one stream.
type ChunkFunc func(key slurm.StreamKey, chunk string)

// DefaultPollInterval is the fallback poll cadence when fsnotify
// delivers nothing.
const DefaultPollInterval = 1 * time.Second

type watch struct {
	reader *Reader
	fn     ChunkFunc
}

// Tailer follows a set of registered files. fsnotify events on the
// parent directories cut latency when the OS cooperates; a poll loop
// guarantees delivery either way. Both paths funnel into the same
// offset-tracked check, so a chunk is delivered exactly once.
type Tailer struct {
	mu       sync.Mutex
	running  bool
	watches  map[slurm.StreamKey]*watch
	watchDir map[string]int

	interval time.Duration
	notify   *fsnotify.Watcher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    zerolog.Logger
}

// New creates a tailer. interval <= 0 uses DefaultPollInterval.
func New(interval time.Duration) *Tailer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Tailer{
		watches:  make(map[slurm.StreamKey]*watch),
		watchDir: make(map[string]int),
		interval: interval,
		log:      logging.Component("tailer"),
	}
}

// Start launches the poll loop and the fsnotify event loop.
func (t *Tailer) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return ErrAlreadyRunning
	}

	t.ctx, t.cancel = context.WithCancel(ctx)
	t.running = true

	// fsnotify is a latency optimization only. If the watcher cannot
	// be created the poll loop still delivers everything.
	if w, err := fsnotify.NewWatcher(); err == nil {
		t.notify = w
		for dir := range t.watchDir {
			if err := w.Add(dir); err != nil {
				t.log.Debug().Err(err).Str("dir", dir).Msg("fsnotify add failed")
			}
		}
		t.wg.Add(1)
		go t.notifyLoop(w)
	} else {
		t.log.Warn().Err(err).Msg("fsnotify unavailable, polling only")
	}

	t.wg.Add(1)
	go t.pollLoop()

	t.log.Info().Dur("interval", t.interval).Msg("tailer started")
	return nil
}

// Stop halts both loops and waits for them to exit.
func (t *Tailer) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return ErrNotRunning
	}
	t.running = false
	t.cancel()
	notify := t.notify
	t.notify = nil
	t.mu.Unlock()

	if notify != nil {
		_ = notify.Close()
	}
	t.wg.Wait()

	t.log.Info().Msg("tailer stopped")
	return nil
}

// Add registers a file under a stream key and delivers its current
// content as the initial chunk. Registering an already tracked key is
// a no-op.
func (t *Tailer) Add(key slurm.StreamKey, path string, fn ChunkFunc) {
	t.mu.Lock()
	if _, ok := t.watches[key]; ok {
		t.mu.Unlock()
		return
	}
	w := &watch{reader: NewReader(path), fn: fn}
	t.watches[key] = w

	dir := filepath.Dir(path)
	t.watchDir[dir]++
	if t.watchDir[dir] == 1 && t.notify != nil {
		if err := t.notify.Add(dir); err != nil {
			t.log.Debug().Err(err).Str("dir", dir).Msg("fsnotify add failed")
		}
	}
	t.mu.Unlock()

	t.log.Info().Str("key", key.String()).Str("path", path).Msg("tailing file")
	t.check(key, w)
}

// Remove deregisters a stream key.
func (t *Tailer) Remove(key slurm.StreamKey) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.watches[key]
	if !ok {
		return
	}
	delete(t.watches, key)

	dir := filepath.Dir(w.reader.Path())
	t.watchDir[dir]--
	if t.watchDir[dir] <= 0 {
		delete(t.watchDir, dir)
		if t.notify != nil {
			_ = t.notify.Remove(dir)
		}
	}
}

// Has reports whether a stream key is registered.
func (t *Tailer) Has(key slurm.StreamKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.watches[key]
	return ok
}

// Tracked returns the registered stream keys.
func (t *Tailer) Tracked() []slurm.StreamKey {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]slurm.StreamKey, 0, len(t.watches))
	for k := range t.watches {
		keys = append(keys, k)
	}
	return keys
}

func (t *Tailer) pollLoop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			t.checkAll()
		}
	}
}

func (t *Tailer) notifyLoop(w *fsnotify.Watcher) {
	defer t.wg.Done()

	for {
		select {
		case <-t.ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			t.checkPath(ev.Name)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			t.log.Debug().Err(err).Msg("fsnotify error")
		}
	}
}

func (t *Tailer) checkAll() {
	for key, w := range t.snapshot() {
		t.check(key, w)
	}
}

func (t *Tailer) checkPath(path string) {
	for key, w := range t.snapshot() {
		if w.reader.Path() == path {
			t.check(key, w)
		}
	}
}

// snapshot copies the watch map so checks run outside the lock.
func (t *Tailer) snapshot() map[slurm.StreamKey]*watch {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[slurm.StreamKey]*watch, len(t.watches))
	for k, w := range t.watches {
		out[k] = w
	}
	return out
}

func (t *Tailer) check(key slurm.StreamKey, w *watch) {
	chunk, err := w.reader.Check()
	if err != nil {
		t.log.Debug().Err(err).Str("key", key.String()).Msg("tail check failed")
		return
	}
	if chunk == "" {
		return
	}
	w.fn(key, chunk)
}
