// Package watcher watches corpus sources with fsnotify and triggers a debounced rebuild.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/extract"
	"github.com/hyperjump/kiku/internal/indexer"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher watches corpus sources and calls onChange once a burst of relevant file events settles.
// onChange calls never overlap.
type Watcher struct {
	sources  []indexer.Source
	onChange func()
	debounce time.Duration
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	runMu    sync.Mutex
	timer    *time.Timer
	dirs     map[string]bool // directories added to fsnotify
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	logger   *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long events must be quiet before onChange runs.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher over sources. File sources are watched through their parent
// directory so editors that replace files atomically are still seen.
func NewWatcher(sources []indexer.Source, onChange func(), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		sources:  make([]indexer.Source, len(sources)),
		onChange: onChange,
		debounce: defaultDebounce,
		dirs:     make(map[string]bool),
		done:     make(chan struct{}),
		logger:   zap.NewNop(),
	}
	for i, s := range sources {
		w.sources[i] = indexer.Source{Path: filepath.Clean(s.Path), Kind: s.Kind}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	for _, src := range w.sources {
		if err := w.addSourceLocked(src); err != nil {
			_ = w.watcher.Close()
			w.watcher = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.logger.Debug("watcher started", zap.Int("sources", len(w.sources)), zap.Int("directories", len(w.dirs)))
	w.mu.Unlock()
	go w.run(ctx)
	return nil
}

func (w *Watcher) addSourceLocked(src indexer.Source) error {
	info, err := os.Stat(src.Path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.addDirLocked(filepath.Dir(src.Path))
	}
	return w.addTreeLocked(src.Path)
}

// addTreeLocked adds root and every non-hidden directory below it.
func (w *Watcher) addTreeLocked(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.addDirLocked(path)
	})
}

func (w *Watcher) addDirLocked(dir string) error {
	if w.dirs[dir] {
		return nil
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	w.mu.Lock()
	watcher := w.watcher
	w.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}
	path := filepath.Clean(ev.Name)
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.underDirSource(path) && !isHidden(filepath.Base(path)) {
				w.mu.Lock()
				if w.watcher != nil {
					if err := w.addTreeLocked(path); err != nil {
						w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
					}
				}
				w.mu.Unlock()
				w.schedule(path)
			}
			return
		}
	}
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.mu.Lock()
		wasDir := w.dirs[path]
		delete(w.dirs, path)
		w.mu.Unlock()
		if wasDir {
			w.schedule(path)
			return
		}
	}
	if w.Relevant(path) {
		w.schedule(path)
	}
}

// Relevant reports whether a change at path affects the corpus.
func (w *Watcher) Relevant(path string) bool {
	path = filepath.Clean(path)
	for _, src := range w.sources {
		if path == src.Path {
			return true
		}
		rel, ok := relativeTo(src.Path, path)
		if !ok || hasHiddenPart(rel) {
			continue
		}
		if extract.Supports(src.Kind, filepath.Ext(path)) {
			return true
		}
	}
	return false
}

func (w *Watcher) underDirSource(path string) bool {
	for _, src := range w.sources {
		if rel, ok := relativeTo(src.Path, path); ok && !hasHiddenPart(rel) {
			return true
		}
	}
	return false
}

// schedule (re)starts the debounce timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	w.logger.Debug("corpus change", zap.String("path", path))
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	select {
	case <-w.done:
		return
	default:
	}
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if w.onChange != nil {
		w.onChange()
	}
}

// Stop stops the watcher and cancels a pending onChange.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}

// relativeTo returns path relative to dir when path is strictly inside dir.
func relativeTo(dir, path string) (string, bool) {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

func hasHiddenPart(rel string) bool {
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if isHidden(part) {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
