package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	defaultDebounceMs   = 200
	defaultPollInterval = 10 * time.Second
)

// StateWatcher watches a signal file that every orchestrator process touches
// after a state-mutating write, so a second process (e.g. the Bridge running
// in another invocation) notices the change without polling. Falls back to
// poll-only if fsnotify cannot be initialized.
type StateWatcher struct {
	signalPath   string
	onChange     func()
	logger       *zap.SugaredLogger
	debounceMs   int
	pollInterval time.Duration

	mu            sync.Mutex
	debounceTimer *time.Timer
	stopCh        chan struct{}
	doneCh        chan struct{}
}

// NewStateWatcher creates a watcher for signalPath; onChange is called
// (debounced) whenever the file changes or the poll fallback fires.
func NewStateWatcher(signalPath string, onChange func(), logger *zap.SugaredLogger) *StateWatcher {
	return &StateWatcher{
		signalPath:   signalPath,
		onChange:     onChange,
		logger:       logger,
		debounceMs:   defaultDebounceMs,
		pollInterval: defaultPollInterval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start runs until ctx is cancelled.
func (w *StateWatcher) Start(ctx context.Context) {
	defer close(w.doneCh)

	watchDir := filepath.Dir(w.signalPath)
	signalName := filepath.Base(w.signalPath)

	watcher, err := fsnotify.NewWatcher()
	useFsnotify := err == nil
	if err != nil {
		w.logger.Warnw("state watcher: fsnotify init failed, using poll-only", "error", err)
	} else if err := watcher.Add(watchDir); err != nil {
		w.logger.Warnw("state watcher: fsnotify add failed, using poll-only", "error", err)
		_ = watcher.Close()
		useFsnotify = false
	}

	if useFsnotify {
		defer watcher.Close()
		go w.watchLoop(ctx, watcher, signalName)
	}
	w.pollLoop(ctx)
}

// Stop signals the watcher to stop; call after cancelling the Start context.
func (w *StateWatcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

// Touch records a write to the signal file (call after a state-mutating save).
func Touch(signalPath string) error {
	return os.WriteFile(signalPath, []byte(time.Now().Format(time.RFC3339Nano)), 0o644)
}

func (w *StateWatcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, signalName string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != signalName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.triggerDebounced()
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *StateWatcher) triggerDebounced() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(time.Duration(w.debounceMs)*time.Millisecond, w.onChange)
}

func (w *StateWatcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.onChange()
		}
	}
}
