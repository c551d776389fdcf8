package knowledge

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"rule-chatbot-be/internal/pkg/logger"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Store when files in its knowledge directory change.
// Rapid successive writes are collapsed into a single reload.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	store       *Store
	dir         string
	debounceDur time.Duration
	logger      logger.ILogger
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a watcher for the store's knowledge directory.
func NewWatcher(store *Store, debounce time.Duration, log logger.ILogger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		watcher:     w,
		store:       store,
		dir:         store.Dir(),
		debounceDur: debounce,
		logger:      log,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start adds the directory tree to the watch list and begins the event loop
// in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	err := filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		w.logger.Warn("KnowledgeWatcher", "Failed to watch knowledge directory", map[string]interface{}{"dir": w.dir, "error": err.Error()})
	}

	go w.run(ctx)
	return nil
}

// Stop ends the event loop and closes the underlying watcher. It is safe to
// call Stop on a watcher that was never started.
func (w *Watcher) Stop() {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.logger.Error("KnowledgeWatcher", "Error closing watcher", map[string]interface{}{"error": err.Error()})
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				// new sub-directories must be watched explicitly
				if isDir(event.Name) {
					_ = w.watcher.Add(event.Name)
				}
			}
			if !relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounceDur)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounceDur)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("KnowledgeWatcher", "Watcher error", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (w *Watcher) reload() {
	base, err := w.store.Reload()
	if err != nil {
		w.logger.Error("KnowledgeWatcher", "Reload failed, keeping previous knowledge base", map[string]interface{}{"error": err.Error()})
		return
	}
	rules, facts := base.Stats()
	w.logger.Info("KnowledgeWatcher", "Knowledge base reloaded", map[string]interface{}{"rules": rules, "facts": facts})
}

func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	switch strings.ToLower(filepath.Ext(event.Name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
