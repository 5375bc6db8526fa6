package db

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/hmis/errors"
	"github.com/teranos/hmis/logger"
)

// DefaultDebounce collapses the burst of writes a single sqlite commit produces.
const DefaultDebounce = 500 * time.Millisecond

// ChangeCallback is called after the watched database file settles.
type ChangeCallback func()

// FileWatcher reports changes to an sqlite database file.
// The containing directory is watched because sqlite in WAL mode writes to
// the -wal companion first and may replace files instead of writing in place.
type FileWatcher struct {
	path           string
	watcher        *fsnotify.Watcher
	logger         *zap.SugaredLogger
	callbacks      []ChangeCallback
	mu             sync.Mutex
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
	done           chan struct{}
}

// NewFileWatcher creates a watcher for the database file at path.
func NewFileWatcher(path string, debounce time.Duration, log *zap.SugaredLogger) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "failed to watch directory of %s", abs)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &FileWatcher{
		path:           abs,
		watcher:        watcher,
		logger:         log,
		debouncePeriod: debounce,
		done:           make(chan struct{}),
	}, nil
}

// OnChange registers a callback to be called when the database changes
func (fw *FileWatcher) OnChange(callback ChangeCallback) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.callbacks = append(fw.callbacks, callback)
}

// Start begins watching in a background goroutine
func (fw *FileWatcher) Start() {
	go fw.watchLoop()
}

// Stop stops watching and waits for the event loop to exit
func (fw *FileWatcher) Stop() error {
	err := fw.watcher.Close()
	<-fw.done

	fw.mu.Lock()
	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.mu.Unlock()
	return err
}

func (fw *FileWatcher) watchLoop() {
	defer close(fw.done)
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !fw.relevant(event) {
				continue
			}
			if fw.logger != nil {
				fw.logger.Debugw("Database file changed",
					logger.FieldFile, event.Name,
					"op", event.Op.String())
			}
			fw.scheduleNotify()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			if fw.logger != nil {
				fw.logger.Warnw("Database watcher error", logger.FieldError, err)
			}
		}
	}
}

// relevant keeps write-like events on the database file and its -wal/-journal companions
func (fw *FileWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := event.Name
	if name == fw.path {
		return true
	}
	if !strings.HasPrefix(name, fw.path) {
		return false
	}
	switch strings.TrimPrefix(name, fw.path) {
	case "-wal", "-journal":
		return true
	default:
		return false
	}
}

// scheduleNotify debounces rapid file changes
func (fw *FileWatcher) scheduleNotify() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}

	fw.debounceTimer = time.AfterFunc(fw.debouncePeriod, fw.notify)
}

func (fw *FileWatcher) notify() {
	fw.mu.Lock()
	callbacks := make([]ChangeCallback, len(fw.callbacks))
	copy(callbacks, fw.callbacks)
	fw.mu.Unlock()

	for _, callback := range callbacks {
		callback()
	}
}
