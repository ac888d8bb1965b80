package kb

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"brandstudio/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates a Loader's cache when policy documents under the
// KB directory change, so a running server picks up edited rules without
// a restart. Events are debounced because editors fire several writes
// per save.
type Watcher struct {
	mu       sync.Mutex
	loader   *Loader
	watcher  *fsnotify.Watcher
	debounce time.Duration
	lastHit  time.Time
	running  bool
	done     chan struct{}
}

// NewWatcher creates a watcher over the loader's KB directory.
func NewWatcher(loader *Loader) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		loader:   loader,
		watcher:  fw,
		debounce: 500 * time.Millisecond,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; runs until ctx is cancelled or
// Stop is called. Watching the subdirectories that hold policy files is
// best-effort: a missing directory just means nothing to watch yet.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dirs := map[string]bool{w.loader.Root(): true}
	for _, rel := range relPaths {
		dirs[filepath.Join(w.loader.Root(), filepath.Dir(rel))] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			logging.Get(logging.CategoryKB).Warn("watch %s failed: %v", dir, err)
			continue
		}
		logging.KBDebug("watching %s", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	_ = w.watcher.Close()
	<-w.done
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			w.mu.Lock()
			now := time.Now()
			fire := now.Sub(w.lastHit) >= w.debounce
			if fire {
				w.lastHit = now
			}
			w.mu.Unlock()

			if fire {
				logging.KB("policy change detected (%s), invalidating cache", filepath.Base(ev.Name))
				w.loader.Invalidate()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryKB).Warn("watcher error: %v", err)
		}
	}
}
