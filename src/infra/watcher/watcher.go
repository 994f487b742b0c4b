package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cadenzadl/cadenza/src/features/downloading"
	"github.com/fsnotify/fsnotify"
)

const debounceSecs = 5

// Watcher monitors the music root for newly written audio files and asks
// the media server for a rescan once writes settle down.
type Watcher struct {
	watcher       *fsnotify.Watcher
	scanner       downloading.LibraryScanner
	watchPath     string
	debounceTimer *time.Timer
	debounceMutex sync.Mutex
	running       bool
	stopChan      chan struct{}
}

// NewWatcher creates a new file system watcher.
func NewWatcher(scanner downloading.LibraryScanner) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:  watcher,
		scanner:  scanner,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins watching the music root and its subdirectories.
func (w *Watcher) Start(ctx context.Context, watchPath string) error {
	w.watchPath = watchPath
	slog.Info("Starting file watcher", "path", watchPath)

	// fsnotify is not recursive; register every existing directory and pick
	// up new ones as they are created.
	err := filepath.WalkDir(watchPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.running = true
	go w.watchLoop(ctx)

	slog.Info("File watcher started successfully")
	return nil
}

// Stop stops the file watcher.
func (w *Watcher) Stop() {
	if !w.running {
		return
	}

	slog.Info("Stopping file watcher")
	w.running = false
	close(w.stopChan)

	w.debounceMutex.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMutex.Unlock()

	w.watcher.Close()
}

// watchLoop processes file system events.
func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", "error", err)

		case <-w.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

// handleEvent processes a single file system event.
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&fsnotify.Create != fsnotify.Create {
		return
	}

	// New artist/album directories must also be watched.
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if err := w.watcher.Add(event.Name); err != nil {
			slog.Warn("Failed to watch new directory", "path", event.Name, "error", err)
		}
		return
	}

	if !isSupportedFile(event.Name) {
		return
	}

	slog.Debug("Detected new audio file", "file", event.Name)

	w.debounceMutex.Lock()
	defer w.debounceMutex.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(debounceSecs*time.Second, func() {
		w.triggerScan(ctx)
	})
}

// isSupportedFile checks if the file is a supported audio format.
func isSupportedFile(filePath string) bool {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3", ".flac":
		return true
	}
	return false
}

// triggerScan asks the media server to rescan after the debounce period.
func (w *Watcher) triggerScan(ctx context.Context) {
	slog.Info("Music root settled, triggering library scan", "path", w.watchPath)
	if err := w.scanner.Trigger(ctx); err != nil {
		slog.Warn("Library scan trigger failed", "error", err)
	}
}
