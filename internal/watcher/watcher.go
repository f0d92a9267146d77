// # internal/watcher/watcher.go

// Package watcher turns filesystem events into debounced change batches for
// the incremental updater. Events for one file inside the debounce window
// collapse into a single change.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"aura/internal/shared/observability"
	"aura/internal/update"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

type Watcher struct {
	root         string
	fsWatcher    *fsnotify.Watcher
	debounce     time.Duration
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	onBatch      func([]update.FileChange)
	callbackMu   sync.Mutex

	// pending maps repository-relative paths to their change type.
	pending   map[string]string
	pendingMu sync.Mutex
	timer     *time.Timer
}

func New(root string, debounce time.Duration, excludeDirs, excludeFiles []string, onBatch func([]update.FileChange)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:      root,
		fsWatcher: fsw,
		debounce:  debounce,
		onBatch:   onBatch,
		pending:   make(map[string]string),
	}

	for _, pattern := range excludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		w.excludeDirs = append(w.excludeDirs, g)
	}

	for _, pattern := range excludeFiles {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		w.excludeFiles = append(w.excludeFiles, g)
	}

	return w, nil
}

// Start watches the repository tree and begins delivering batches.
func (w *Watcher) Start() error {
	if err := w.watchRecursive(w.root); err != nil {
		return err
	}
	go w.run()
	return nil
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}

		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	observability.WatcherEventsTotal.Inc()

	if event.Op&fsnotify.Create == fsnotify.Create {
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			if !w.shouldExcludeDir(event.Name) {
				if err := w.watchRecursive(event.Name); err != nil {
					slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
				} else {
					w.enqueueExistingFiles(event.Name)
				}
			}
			return
		}
	}

	if w.shouldExcludeFile(event.Name) {
		return
	}

	switch {
	case event.Op&fsnotify.Remove == fsnotify.Remove || event.Op&fsnotify.Rename == fsnotify.Rename:
		w.scheduleChange(event.Name, update.ChangeDeleted)
	case event.Op&fsnotify.Create == fsnotify.Create:
		w.scheduleChange(event.Name, update.ChangeAdded)
	case event.Op&fsnotify.Write == fsnotify.Write:
		w.scheduleChange(event.Name, update.ChangeModified)
	}
}

func (w *Watcher) scheduleChange(path, changeType string) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	// A create or write after a pending delete means the file is back;
	// the updater treats that as a modification.
	if prev, ok := w.pending[rel]; ok && prev == update.ChangeDeleted && changeType != update.ChangeDeleted {
		changeType = update.ChangeModified
	}
	w.pending[rel] = changeType

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.flushChanges()
	})
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	batch := make([]update.FileChange, 0, len(w.pending))
	for rel, changeType := range w.pending {
		batch = append(batch, update.FileChange{Path: rel, Type: changeType})
	}
	w.pending = make(map[string]string)
	w.pendingMu.Unlock()

	if len(batch) > 0 {
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onBatch(batch)
	}
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldExcludeFile(path string) bool {
	base := filepath.Base(path)

	if strings.HasSuffix(base, "_test.go") || strings.HasSuffix(base, "_test.py") {
		return true
	}

	for _, g := range w.excludeFiles {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if w.shouldExcludeFile(path) {
			return nil
		}
		w.scheduleChange(path, update.ChangeAdded)
		return nil
	})
}
