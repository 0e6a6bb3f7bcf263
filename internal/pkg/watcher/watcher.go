// Package watcher reloads pattern files when they change on disk.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/endorses/stringmatch/internal/pkg/constants"
	"github.com/endorses/stringmatch/internal/pkg/logger"
	"github.com/fsnotify/fsnotify"
)

// Config configures the file watcher.
type Config struct {
	// Debounce is how long the file must stay quiet before OnChange runs.
	// Default: constants.ReloadDebounce
	Debounce time.Duration
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() Config {
	return Config{Debounce: constants.ReloadDebounce}
}

// Stats counts watcher activity.
type Stats struct {
	Events  uint64
	Reloads uint64
	Errors  uint64
}

// Watcher calls OnChange after a file is written, created or renamed into
// place. The parent directory is watched so that editors replacing the file
// are followed.
type Watcher struct {
	path     string
	onChange func()
	config   Config

	fsWatcher *fsnotify.Watcher
	mu        sync.Mutex
	timer     *time.Timer
	stopChan  chan struct{}
	wg        sync.WaitGroup
	running   bool
	stats     Stats
}

// New creates a watcher for path.
func New(path string, onChange func(), config Config) *Watcher {
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}
	return &Watcher{
		path:     path,
		onChange: onChange,
		config:   config,
		stopChan: make(chan struct{}),
	}
}

// Start begins watching. It returns once the watch is registered.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := fsWatcher.Add(dir); err != nil {
		if cerr := fsWatcher.Close(); cerr != nil {
			logger.Error("failed to close fsnotify watcher", "error", cerr)
		}
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.fsWatcher = fsWatcher
	w.running = true

	w.wg.Add(1)
	go w.loop(ctx)

	logger.Info("Watching pattern file", "path", w.path, "debounce", w.config.Debounce)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	target, _ := filepath.Abs(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			name, _ := filepath.Abs(event.Name)
			if name != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logger.Warn("fsnotify error", "error", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		}
	}
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stats.Events++
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.config.Debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.stats.Reloads++
	w.mu.Unlock()

	logger.Debug("Pattern file changed", "path", w.path)
	w.onChange()
}

// Stop stops watching. A pending reload is dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.stopChan)

	var err error
	if cerr := w.fsWatcher.Close(); cerr != nil {
		err = fmt.Errorf("failed to close file watcher: %w", cerr)
	}
	w.wg.Wait()

	logger.Info("Stopped pattern file watcher", "path", w.path, "reloads", w.Stats().Reloads)
	return err
}

// Stats returns watcher statistics.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
