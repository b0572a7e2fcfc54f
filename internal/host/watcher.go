package host

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dshills/editorbridge/internal/bridge"
	"github.com/dshills/editorbridge/internal/coalesce"
	"github.com/dshills/editorbridge/internal/logging"
)

// DefaultReloadDelay is the quiet period between the last write to the
// content file and the reload.
const DefaultReloadDelay = 50 * time.Millisecond

// ContentWatcher reloads a content file into the editor whenever it changes
// on disk. Reloads are silent: the host wrote the file and needs no change
// notification for it.
type ContentWatcher struct {
	path     string
	surface  bridge.Surface
	watcher  *fsnotify.Watcher
	reload   *coalesce.Coalescer
	logger   *zap.Logger
	closeCh  chan struct{}
	closedWg sync.WaitGroup

	mu     sync.Mutex
	closed bool
	loads  int
}

// NewContentWatcher starts watching path. The file's directory is watched
// so that atomic replace-by-rename is seen as well as in-place writes.
func NewContentWatcher(path string, s bridge.Surface, delay time.Duration, logger *zap.Logger) (*ContentWatcher, error) {
	if logger == nil {
		logger = logging.L()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &ContentWatcher{
		path:    abs,
		surface: s,
		watcher: fsw,
		logger:  logger.Named("watch").With(zap.String("path", abs)),
		closeCh: make(chan struct{}),
	}
	w.reload = coalesce.New(delay, true, w.load)

	w.closedWg.Add(1)
	go w.processLoop()
	return w, nil
}

// Loads returns how many times the file was reloaded into the editor.
func (w *ContentWatcher) Loads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loads
}

// Close stops the watcher.
func (w *ContentWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.closedWg.Wait()
	w.reload.Stop()
	return w.watcher.Close()
}

func (w *ContentWatcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.reload.Notify()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// load reads the file and replaces the buffer when it differs.
func (w *ContentWatcher) load() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("reload failed", zap.Error(err))
		}
		return
	}
	text := string(data)
	if text == w.surface.Value() {
		return
	}
	w.surface.SetValue(text, true)

	w.mu.Lock()
	w.loads++
	w.mu.Unlock()
	w.logger.Debug("reloaded", zap.Int("bytes", len(data)))
}
