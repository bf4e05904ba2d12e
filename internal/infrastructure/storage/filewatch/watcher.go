// Package filewatch reloads the serving snapshot when the attached store
// file changes on disk.
package filewatch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
)

// DefaultDebounce is the quiet period after the last write before a reload.
const DefaultDebounce = 2 * time.Second

// ReloadFunc rebuilds the serving snapshot.
type ReloadFunc func(ctx context.Context) error

// Watcher fires a reload once the store file has been quiet for the
// debounce interval.  The parent directory is watched so that a file
// replaced by rename is still seen.
type Watcher struct {
	fw       *fsnotify.Watcher
	path     string
	names    map[string]bool
	debounce time.Duration
	logger   logging.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// New watches the store file at path.  A non-positive debounce selects
// DefaultDebounce.
func New(path string, debounce time.Duration, logger logging.Logger) (*Watcher, error) {
	if path == "" {
		return nil, errors.New(errors.ErrCodeValidation, "store path required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid store path").WithDetail(path)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create file watcher")
	}
	base := filepath.Base(abs)
	return &Watcher{
		fw:   fw,
		path: abs,
		// A WAL-mode writer commits into the side file.
		names:    map[string]bool{base: true, base + "-wal": true},
		debounce: debounce,
		logger:   logger.Named("filewatch"),
		done:     make(chan struct{}),
	}, nil
}

// Path is the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Start begins watching.  reload runs on the watcher goroutine, so events
// arriving during a reload collapse into at most one more.
func (w *Watcher) Start(ctx context.Context, reload ReloadFunc) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return errors.New(errors.ErrCodeConflict, "watcher stopped")
	}
	if w.started {
		return errors.New(errors.ErrCodeConflict, "watcher already running")
	}
	if err := w.fw.Add(filepath.Dir(w.path)); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to watch store directory").WithDetail(w.path)
	}
	w.started = true
	w.wg.Add(1)
	go w.loop(ctx, reload)

	w.logger.Info("watching store file",
		logging.String("path", w.path),
		logging.Duration("debounce", w.debounce))
	return nil
}

func (w *Watcher) loop(ctx context.Context, reload ReloadFunc) {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.fire(ctx, reload)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", logging.Err(err))

		case <-ctx.Done():
			return
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return w.names[filepath.Base(ev.Name)]
}

func (w *Watcher) fire(ctx context.Context, reload ReloadFunc) {
	start := time.Now()
	if err := reload(ctx); err != nil {
		w.logger.Error("reload after store change failed",
			logging.String("path", w.path),
			logging.Err(err))
		return
	}
	w.logger.Info("reloaded after store change",
		logging.String("path", w.path),
		logging.Duration("took", time.Since(start)))
}

// Stop ends watching and waits for an in-flight reload.  Safe to call
// more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.done)
	w.mu.Unlock()

	err := w.fw.Close()
	w.wg.Wait()
	return err
}

//Personal.AI order the ending
