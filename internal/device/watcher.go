package device

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"qrpdf/internal/log"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// FrameEvent is a frame file written into a camera directory.
type FrameEvent struct {
	Path      string
	Timestamp time.Time
	Op        fsnotify.Op
}

// frameWatcher delivers new frame files of one camera directory.
type frameWatcher struct {
	dir     string
	pattern glob.Glob

	frames    chan FrameEvent
	errs      chan error
	stopChan  chan struct{}
	fsWatcher *fsnotify.Watcher

	mutex   sync.Mutex
	running bool
}

func newFrameWatcher(dir string, pattern glob.Glob) (*frameWatcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("error accessing camera directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &frameWatcher{
		dir:       dir,
		pattern:   pattern,
		frames:    make(chan FrameEvent, 16),
		errs:      make(chan error, 1),
		stopChan:  make(chan struct{}),
		fsWatcher: fsWatcher,
	}, nil
}

// Frames returns the channel of frame events.
func (w *frameWatcher) Frames() <-chan FrameEvent {
	return w.frames
}

// Errors returns the channel that reports a lost stream.
func (w *frameWatcher) Errors() <-chan error {
	return w.errs
}

func (w *frameWatcher) start() {
	w.mutex.Lock()
	if w.running {
		w.mutex.Unlock()
		return
	}
	w.running = true
	w.mutex.Unlock()

	go w.loop()
	log.LogWithFields(log.F("directory", w.dir)).Debug("Frame watcher started")
}

func (w *frameWatcher) loop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				w.fail(fmt.Errorf("camera stream closed"))
				return
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !w.pattern.Match(filepath.Base(event.Name)) {
				continue
			}

			frame := FrameEvent{Path: event.Name, Timestamp: time.Now(), Op: event.Op}
			select {
			case w.frames <- frame:
			case <-w.stopChan:
				return
			default:
				// Slow consumer; the decode loop only wants the latest frame anyway.
				log.LogWithFields(log.F("frame", event.Name)).Debug("Frame channel full, dropped frame")
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				w.fail(fmt.Errorf("camera stream closed"))
				return
			}
			log.LogWithFields(log.F("error", err), log.F("directory", w.dir)).Error("fsnotify watcher error")

		case <-w.stopChan:
			return
		}
	}
}

func (w *frameWatcher) fail(err error) {
	select {
	case <-w.stopChan:
		// Closed by stop; not a failure.
	default:
		select {
		case w.errs <- err:
		default:
		}
	}
}

func (w *frameWatcher) stop() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	select {
	case <-w.stopChan:
		return
	default:
	}
	close(w.stopChan)

	if err := w.fsWatcher.Close(); err != nil {
		log.LogWithFields(log.F("error", err)).Error("Error closing fsnotify watcher")
	}
	w.running = false
	log.LogWithFields(log.F("directory", w.dir)).Debug("Frame watcher stopped")
}

func (w *frameWatcher) isRunning() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.running
}
