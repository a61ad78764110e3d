package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/autodeployer/internal/logfields"
)

// DefaultWatchDebounce coalesces bursts of file events into one notification.
const DefaultWatchDebounce = 2 * time.Second

// StateFileWatcher reports external changes to the state file. It watches
// the containing directory so atomic replacements and deletions are seen.
type StateFileWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func()
	logger   *slog.Logger

	mu      sync.Mutex
	stopped bool
}

// NewStateFileWatcher creates a watcher calling onChange after debounce has
// passed without further events for path.
func NewStateFileWatcher(path string, debounce time.Duration, onChange func(), logger *slog.Logger) (*StateFileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve state file path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch state file directory %s: %w", filepath.Dir(abs), err)
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StateFileWatcher{
		path:     abs,
		watcher:  w,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}, nil
}

// Run processes events until ctx is cancelled or Close is called.
func (sw *StateFileWatcher) Run(ctx context.Context) {
	sw.logger.Info("Watching state file", logfields.Path(sw.path))

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !sw.relevant(event) {
				continue
			}
			sw.logger.Debug("State file event", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(sw.debounce)
			} else {
				timer.Reset(sw.debounce)
			}
			fire = timer.C
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Warn("State file watcher error", logfields.Error(err))
		case <-fire:
			fire = nil
			if sw.onChange != nil {
				sw.onChange()
			}
		}
	}
}

func (sw *StateFileWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != sw.path {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}

// Close releases the underlying watcher; Run returns afterwards.
func (sw *StateFileWatcher) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.stopped {
		return nil
	}
	sw.stopped = true
	return sw.watcher.Close()
}
