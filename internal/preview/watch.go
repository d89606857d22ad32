// Package preview watches site sources and rebuilds on change, notifying
// LiveReload clients with the new output hash.
package preview

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/server"
)

// DefaultDebounce is the quiet window after the last change before a rebuild starts.
const DefaultDebounce = 300 * time.Millisecond

// RebuildFunc rebuilds the site and returns its output hash.
type RebuildFunc func(ctx context.Context) (string, error)

// Broadcaster receives the output hash after each rebuild.
type Broadcaster interface {
	Broadcast(hash string)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithIgnore skips events below the given directories, typically the output directory.
func WithIgnore(dirs ...string) Option {
	return func(w *Watcher) {
		for _, d := range dirs {
			if abs, err := filepath.Abs(d); err == nil {
				w.ignore = append(w.ignore, abs)
			}
		}
	}
}

// Watcher triggers debounced rebuilds from filesystem events. At most one
// rebuild runs at a time; changes during a rebuild queue exactly one more.
type Watcher struct {
	dirs     []string
	files    map[string]struct{}
	ignore   []string
	rebuild  RebuildFunc
	notify   Broadcaster
	debounce time.Duration

	requests chan struct{}
	ready    chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher watches dirs recursively and individual files such as the config.
// Missing paths are skipped.
func NewWatcher(paths []string, rebuild RebuildFunc, notify Broadcaster, opts ...Option) *Watcher {
	w := &Watcher{
		files:    map[string]struct{}{},
		rebuild:  rebuild,
		notify:   notify,
		debounce: DefaultDebounce,
		requests: make(chan struct{}, 1),
		ready:    make(chan struct{}),
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		info, err := os.Stat(abs)
		switch {
		case err != nil:
			slog.Debug("Skipping missing watch path", logfields.Path(abs))
		case info.IsDir():
			w.dirs = append(w.dirs, abs)
		default:
			w.files[abs] = struct{}{}
		}
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Ready is closed once all watches are registered.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Run watches until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = fw.Close() }()

	for _, d := range w.dirs {
		w.addDirsRecursive(fw, d)
	}
	parents := map[string]struct{}{}
	for f := range w.files {
		parents[filepath.Dir(f)] = struct{}{}
	}
	for p := range parents {
		if err := fw.Add(p); err != nil {
			slog.Warn("watch add failed", logfields.Path(p), logfields.Error(err))
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(ctx)
	}()
	defer wg.Wait()
	defer w.stopTimer()

	close(w.ready)
	slog.Info("Watching for changes", logfields.Count(len(w.dirs)+len(w.files)))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod || !w.relevant(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() && w.underDirs(ev.Name) {
			w.addDirsRecursive(fw, ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	w.trigger()
}

func (w *Watcher) relevant(p string) bool {
	if shouldIgnoreEvent(p) {
		return false
	}
	for _, ig := range w.ignore {
		if p == ig || strings.HasPrefix(p, ig+string(filepath.Separator)) {
			return false
		}
	}
	if _, ok := w.files[p]; ok {
		return true
	}
	return w.underDirs(p)
}

func (w *Watcher) underDirs(p string) bool {
	for _, d := range w.dirs {
		if p == d || strings.HasPrefix(p, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// trigger restarts the quiet window.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.request)
}

func (w *Watcher) request() {
	select {
	case w.requests <- struct{}{}:
	default:
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.requests:
			w.runRebuild(ctx)
		}
	}
}

func (w *Watcher) runRebuild(ctx context.Context) {
	slog.Info("Change detected; rebuilding site")
	hash, err := w.rebuild(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("rebuild failed", logfields.Error(err))
		w.notify.Broadcast(server.ErrorHashPrefix + strconv.FormatInt(time.Now().UnixNano(), 10))
		return
	}
	w.notify.Broadcast(hash)
}

func (w *Watcher) addDirsRecursive(fw *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != root && (strings.HasPrefix(d.Name(), ".") || !w.relevant(p)) {
			return filepath.SkipDir
		}
		if err := fw.Add(p); err != nil {
			slog.Warn("watch add failed", logfields.Path(p), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger rebuilds.
func shouldIgnoreEvent(p string) bool {
	base := filepath.Base(p)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db":
		return true
	}
	return false
}
