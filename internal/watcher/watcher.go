// Package watcher re-runs analysis when source files under a project root
// change. File system events are debounced and then confirmed against a
// size and mtime snapshot so editor save storms trigger one run.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Disentinel/grafema-sub012/internal/discover"
	"github.com/Disentinel/grafema-sub012/internal/observability"
)

// DefaultDebounce is used when Options.Debounce is not positive.
const DefaultDebounce = 500 * time.Millisecond

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// ChangeFunc is called with the slash-separated relative paths that changed
// since the previous call.
type ChangeFunc func(ctx context.Context, changed []string) error

// Options tunes a Watcher.
type Options struct {
	Debounce time.Duration
	Discover *discover.Options
}

// Watcher watches one project root.
type Watcher struct {
	root     string
	debounce time.Duration
	opts     *discover.Options
	filter   *discover.Filter
	onChange ChangeFunc
	fsw      *fsnotify.Watcher
	logger   *slog.Logger

	snapshot map[string]fileSnapshot
	pending  map[string]struct{}
}

// New creates a Watcher for root. The baseline snapshot is taken here, so
// changes made after New returns are reported.
func New(root string, opts Options, onChange ChangeFunc) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watcher: nil change callback")
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	filter, err := discover.NewFilter(root, opts.Discover)
	if err != nil {
		return nil, err
	}
	snap, err := captureSnapshot(root, opts.Discover)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:     root,
		debounce: opts.Debounce,
		opts:     opts.Discover,
		filter:   filter,
		onChange: onChange,
		fsw:      fsw,
		logger:   slog.Default().With("component", "watcher"),
		snapshot: snap,
		pending:  make(map[string]struct{}),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if err := w.watchRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is cancelled, then closes the underlying watcher.
// Errors returned by the change callback are logged and the old snapshot is
// kept so the next event retries.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			observability.WatcherEvents.Inc()
			if !w.handle(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher.error", "err", err)

		case <-fire:
			fire = nil
			w.flush(ctx)
		}
	}
}

// handle records a relevant event and reports whether it should (re)arm the
// debounce timer.
func (w *Watcher) handle(event fsnotify.Event) bool {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.filter.SkipDir(rel) {
				return false
			}
			if err := w.watchRecursive(event.Name); err != nil {
				w.logger.Warn("watcher.add_dir", "path", rel, "err", err)
			}
			// Files created together with the directory have no events of
			// their own.
			w.pending[rel] = struct{}{}
			return true
		}
	}
	if !w.filter.Source(rel) {
		return false
	}
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.pending[rel] = struct{}{}
		return true
	}
	return false
}

func (w *Watcher) flush(ctx context.Context) {
	if len(w.pending) == 0 {
		return
	}
	clear(w.pending)

	snap, err := captureSnapshot(w.root, w.opts)
	if err != nil {
		w.logger.Warn("watcher.snapshot", "err", err)
		return
	}
	changed := diffSnapshots(w.snapshot, snap)
	if len(changed) == 0 {
		return
	}
	w.logger.Info("watcher.changed", "files", len(changed))
	if err := w.onChange(ctx, changed); err != nil {
		w.logger.Warn("watcher.callback", "err", err)
		return
	}
	w.snapshot = snap
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(w.root, path)
		rel = filepath.ToSlash(rel)
		if rel != "." && w.filter.SkipDir(rel) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// captureSnapshot records size and mtime of every source file and package
// manifest under root.
func captureSnapshot(root string, opts *discover.Options) (map[string]fileSnapshot, error) {
	files, err := discover.Discover(context.Background(), root, opts)
	if err != nil {
		return nil, err
	}
	manifests, err := discover.FindManifests(context.Background(), root, opts)
	if err != nil {
		return nil, err
	}
	paths := make(map[string]string, len(files)+len(manifests))
	for _, f := range files {
		paths[f.RelPath] = f.Path
	}
	for _, rel := range manifests {
		paths[rel] = filepath.Join(root, filepath.FromSlash(rel))
	}

	snap := make(map[string]fileSnapshot, len(paths))
	for rel, abs := range paths {
		info, statErr := os.Stat(abs)
		if statErr != nil {
			continue
		}
		snap[rel] = fileSnapshot{modTime: info.ModTime(), size: info.Size()}
	}
	return snap, nil
}

// diffSnapshots returns the sorted paths added, removed or modified between
// a and b.
func diffSnapshots(a, b map[string]fileSnapshot) []string {
	var changed []string
	for path, aSnap := range a {
		bSnap, ok := b[path]
		if !ok || !aSnap.modTime.Equal(bSnap.modTime) || aSnap.size != bSnap.size {
			changed = append(changed, path)
		}
	}
	for path := range b {
		if _, ok := a[path]; !ok {
			changed = append(changed, path)
		}
	}
	slices.Sort(changed)
	return changed
}
