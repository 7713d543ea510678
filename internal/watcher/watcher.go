// Package watcher keeps the document store in step with the text files under a set of
// watched directories.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/lens/internal/config"
	"github.com/hyperjump/lens/internal/indexer"
	"github.com/hyperjump/lens/pkg/utils"
)

const defaultDebounce = 400 * time.Millisecond

// Sink receives file changes. indexer.Ingester implements it.
type Sink interface {
	IngestFile(ctx context.Context, path string, allowedExts []string) (bool, error)
	RemoveFile(ctx context.Context, path string) error
}

// Stats counts the changes a watcher has applied.
type Stats struct {
	Ingested int64 `json:"ingested"`
	Removed  int64 `json:"removed"`
	Failed   int64 `json:"failed"`
}

// Watcher forwards file creations and writes (debounced per path) and removals to a Sink.
type Watcher struct {
	sink       Sink
	extensions []string
	recursive  bool
	debounce   time.Duration

	// onChange runs once the store has been quiet for settle after a change.
	onChange    func()
	settle      time.Duration
	changeTimer *time.Timer

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	ctx      context.Context
	roots    []string
	rootDirs map[string][]string // root -> directories added to fsnotify
	pending  map[string]*time.Timer
	started  bool
	done     chan struct{}
	stopOnce sync.Once

	ingested atomic.Int64
	removed  atomic.Int64
	failed   atomic.Int64

	logger *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = utils.OrNop(l) }
}

// WithDebounce sets how long a path must stay quiet before it is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithOnChange calls fn once no change has been applied for settle, for example to
// schedule an append-mode index run.
func WithOnChange(settle time.Duration, fn func()) Option {
	return func(w *Watcher) {
		w.settle = settle
		w.onChange = fn
	}
}

// New creates a watcher over the directories of cfg.
func New(sink Sink, cfg config.WatchConfig, opts ...Option) *Watcher {
	w := &Watcher{
		sink:       sink,
		extensions: append([]string(nil), cfg.Extensions...),
		recursive:  cfg.RecursiveOrDefault(),
		debounce:   defaultDebounce,
		roots:      append([]string(nil), cfg.Directories...),
		rootDirs:   make(map[string][]string),
		pending:    make(map[string]*time.Timer),
		done:       make(chan struct{}),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. Missing roots are created. It returns immediately; the watcher
// runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw
	w.ctx = ctx
	for i, root := range w.roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			_ = fsw.Close()
			w.fsw = nil
			return err
		}
		if err := w.addRootLocked(abs); err != nil {
			_ = fsw.Close()
			w.fsw = nil
			return err
		}
		w.roots[i] = abs
	}
	w.started = true
	w.logger.Info("Watching directories",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive))
	go w.run(ctx, fsw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if !w.underRoot(path) {
		return
	}
	w.logger.Debug("File event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.addNewDirectory(path)
			return
		}
		if matchExtension(path, w.extensions) {
			w.schedule(path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancel(path)
		if matchExtension(path, w.extensions) {
			w.remove(path)
		}
	}
}

// addNewDirectory watches a directory created (or moved) under a root and ingests the
// files it already holds.
func (w *Watcher) addNewDirectory(dir string) {
	w.mu.Lock()
	fsw := w.fsw
	recursive := w.recursive
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	if recursive {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if err := fsw.Add(path); err != nil {
					w.logger.Warn("Failed to watch directory", zap.String("path", path), zap.Error(err))
				}
			}
			return nil
		})
	} else if err := fsw.Add(dir); err != nil {
		w.logger.Warn("Failed to watch directory", zap.String("path", dir), zap.Error(err))
	}
	w.syncDirectory(dir)
}

func (w *Watcher) underRoot(path string) bool {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	clean := filepath.Clean(path)
	for _, root := range roots {
		if inDir(filepath.Clean(root), clean) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.ingest(path)
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) context() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx == nil {
		return context.Background()
	}
	return w.ctx
}

func (w *Watcher) ingest(path string) {
	ok, err := w.sink.IngestFile(w.context(), path, w.extensions)
	switch {
	case errors.Is(err, indexer.ErrEmptyDocument):
		w.logger.Debug("Skipping empty file", zap.String("path", path))
	case err != nil:
		w.failed.Add(1)
		w.logger.Warn("Failed to ingest file", zap.String("source", path), zap.Error(err))
	case ok:
		w.ingested.Add(1)
		w.logger.Debug("File ingested", zap.String("path", path))
		w.changed()
	}
}

func (w *Watcher) remove(path string) {
	if err := w.sink.RemoveFile(w.context(), path); err != nil {
		w.failed.Add(1)
		w.logger.Warn("Failed to remove file", zap.String("source", path), zap.Error(err))
		return
	}
	w.removed.Add(1)
	w.changed()
}

func (w *Watcher) changed() {
	if w.onChange == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.changeTimer != nil {
		w.changeTimer.Stop()
	}
	w.changeTimer = time.AfterFunc(w.settle, w.onChange)
}

// AddDirectory starts watching root, optionally ingesting the files it already holds.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	if w.fsw == nil {
		w.mu.Unlock()
		return errors.New("watcher not started")
	}
	for _, r := range w.roots {
		if filepath.Clean(r) == abs {
			w.mu.Unlock()
			return nil
		}
	}
	if err := w.addRootLocked(abs); err != nil {
		w.mu.Unlock()
		return err
	}
	w.roots = append(w.roots, abs)
	w.mu.Unlock()
	w.logger.Info("Directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting {
		go w.syncDirectory(abs)
	}
	return nil
}

func (w *Watcher) addRootLocked(root string) error {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	if !w.recursive {
		if err := w.fsw.Add(root); err != nil {
			return err
		}
		w.rootDirs[root] = []string{root}
		return nil
	}
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return err
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return err
	}
	w.rootDirs[root] = dirs
	return nil
}

func (w *Watcher) syncDirectory(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if matchExtension(path, w.extensions) {
			w.ingest(path)
		}
		return nil
	})
}

// RemoveDirectory stops watching root. Documents already ingested stay in the store.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := -1
	for i, r := range w.roots {
		if filepath.Clean(r) == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	if w.fsw != nil {
		for _, p := range w.rootDirs[abs] {
			_ = w.fsw.Remove(p)
		}
	}
	delete(w.rootDirs, abs)
	w.roots = append(w.roots[:idx], w.roots[idx+1:]...)
	w.logger.Info("Directory removed", zap.String("path", abs))
	return nil
}

// Directories returns the watched roots.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExistingFiles ingests every matching file under every root. Unchanged files are
// skipped by the sink.
func (w *Watcher) SyncExistingFiles() {
	for _, root := range w.Directories() {
		w.syncDirectory(root)
	}
}

// Stats returns the counters of applied changes.
func (w *Watcher) Stats() Stats {
	return Stats{Ingested: w.ingested.Load(), Removed: w.removed.Load(), Failed: w.failed.Load()}
}

// Stop stops watching and drops pending changes.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	if w.changeTimer != nil {
		w.changeTimer.Stop()
	}
	_ = w.fsw.Close()
	w.fsw = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
