package mesh

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// CorpusWatcher re-triggers a solve when a corpus file changes on disk.
// It watches the parent directory so editors that replace the file by
// rename are still seen.
type CorpusWatcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	onChange func(path string)
	logger   *zap.Logger
	debounce time.Duration
	pending  time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewCorpusWatcher creates a watcher for path. onChange runs on the
// watcher goroutine once writes have been quiet for the debounce period.
func NewCorpusWatcher(path string, onChange func(path string), logger *zap.Logger) (*CorpusWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, err
	}
	return &CorpusWatcher{
		watcher:  w,
		path:     abs,
		onChange: onChange,
		logger:   logger,
		debounce: 250 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// SetDebounce changes the quiet period; call before Start
func (cw *CorpusWatcher) SetDebounce(d time.Duration) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.debounce = d
}

// Start begins watching. It does not block.
func (cw *CorpusWatcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	if cw.running {
		cw.mu.Unlock()
		return nil
	}
	cw.running = true
	cw.mu.Unlock()

	if err := cw.watcher.Add(filepath.Dir(cw.path)); err != nil {
		cw.mu.Lock()
		cw.running = false
		cw.mu.Unlock()
		return err
	}
	cw.logger.Info("watching corpus file", zap.String("path", cw.path))

	go cw.run(ctx)
	return nil
}

// Stop ends the event loop and releases the underlying watcher
func (cw *CorpusWatcher) Stop() {
	cw.mu.Lock()
	running := cw.running
	cw.running = false
	cw.mu.Unlock()

	if running {
		close(cw.stopCh)
		<-cw.doneCh
	}
	if err := cw.watcher.Close(); err != nil {
		cw.logger.Warn("closing watcher", zap.Error(err))
	}
}

func (cw *CorpusWatcher) run(ctx context.Context) {
	defer close(cw.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopCh:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			cw.handleEvent(event)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Warn("watcher error", zap.Error(err))
		case <-ticker.C:
			cw.fireIfQuiet()
		}
	}
}

func (cw *CorpusWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != cw.path {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	cw.logger.Debug("corpus file event", zap.String("op", event.Op.String()))
	cw.mu.Lock()
	cw.pending = time.Now()
	cw.mu.Unlock()
}

func (cw *CorpusWatcher) fireIfQuiet() {
	cw.mu.Lock()
	if cw.pending.IsZero() || time.Since(cw.pending) < cw.debounce {
		cw.mu.Unlock()
		return
	}
	cw.pending = time.Time{}
	cw.mu.Unlock()

	if cw.onChange != nil {
		cw.onChange(cw.path)
	}
}
