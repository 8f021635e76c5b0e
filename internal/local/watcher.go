package local

import (
	"fmt"
	"os"
	"sync"

	"ampyfm/internal/log"

	"github.com/fsnotify/fsnotify"
)

// Watcher signals when entries appear in, vanish from, or are renamed within
// the local directory being shown. Only one directory is watched at a time.
type Watcher struct {
	fsWatcher *fsnotify.Watcher

	// Buffered with capacity one so bursts collapse into one signal
	changed chan struct{}
	stop    chan struct{}
	done    chan struct{}

	mutex   sync.Mutex
	dir     string
	running bool
	stopped bool
}

// NewWatcher creates a stopped watcher
func NewWatcher() (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &Watcher{
		fsWatcher: fsWatcher,
		changed:   make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

// Changed delivers one value per burst of directory changes
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

// Done is closed by Stop. Receivers of Changed select on it to give up.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Dir returns the watched directory
func (w *Watcher) Dir() string {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.dir
}

// Watch replaces the watched directory with dir.
func (w *Watcher) Watch(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("error accessing directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.dir == dir {
		return nil
	}
	if w.dir != "" {
		if err := w.fsWatcher.Remove(w.dir); err != nil {
			log.LogWithFields(log.F("directory", w.dir)).Debugf("unwatch: %v", err)
		}
	}
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to add directory %s to watcher: %w", dir, err)
	}
	w.dir = dir
	log.LogWithFields(log.F("directory", dir)).Debug("watching local directory")
	return nil
}

// Start runs the event loop in a goroutine
func (w *Watcher) Start() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.running {
		return fmt.Errorf("watcher already running")
	}
	w.running = true

	go w.loop(w.stop)
	return nil
}

func (w *Watcher) loop(stop <-chan struct{}) {
	const relevant = fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&relevant == 0 {
				continue
			}
			select {
			case w.changed <- struct{}{}:
			default:
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.LogWithFields(log.F("error", err)).Warn("local directory watcher error")

		case <-stop:
			return
		}
	}
}

// Stop ends the event loop and releases the fsnotify watcher. A stopped
// watcher cannot be restarted.
func (w *Watcher) Stop() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.running {
		close(w.stop)
		w.running = false
	}
	if w.stopped {
		return
	}
	w.stopped = true
	close(w.done)
	if err := w.fsWatcher.Close(); err != nil {
		log.LogWithFields(log.F("error", err)).Error("Error closing fsnotify watcher")
	}
}

// IsRunning returns whether the event loop is active
func (w *Watcher) IsRunning() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.running
}
