package daemon

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docrestyle/internal/foundation/errors"
	"git.home.luguber.info/inful/docrestyle/internal/logfields"
)

// PathFilter decides which slash-separated paths, relative to the site root,
// the watcher cares about. site.Options satisfies it.
type PathFilter interface {
	Accepts(rel string) bool
	Excludes(rel string) bool
}

// BatchFunc receives the absolute paths of pages touched during a quiet window.
type BatchFunc func(ctx context.Context, paths []string)

// SiteWatcher watches a site tree and reports changed pages in debounced batches.
type SiteWatcher struct {
	root     string
	filter   PathFilter
	debounce time.Duration
	onBatch  BatchFunc
	watcher  *fsnotify.Watcher
}

// NewSiteWatcher creates a watcher over root and every non-excluded directory below it.
func NewSiteWatcher(root string, debounce time.Duration, filter PathFilter, onBatch BatchFunc) (*SiteWatcher, error) {
	if debounce <= 0 {
		return nil, errors.ValidationError("debounce must be > 0").Build()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve site root").
			WithContext("path", root).Build()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDaemon, "failed to create file watcher").Build()
	}

	sw := &SiteWatcher{
		root:     absRoot,
		filter:   filter,
		debounce: debounce,
		onBatch:  onBatch,
		watcher:  w,
	}
	if err := sw.addTree(absRoot); err != nil {
		_ = w.Close()
		return nil, err
	}
	return sw, nil
}

func (sw *SiteWatcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if path != sw.root {
			if rel, ok := sw.rel(path); !ok || sw.filter.Excludes(rel) {
				return filepath.SkipDir
			}
		}
		return sw.watcher.Add(path)
	})
	if err != nil {
		return errors.WrapError(err, errors.CategoryDaemon, "failed to watch site directory").
			WithContext("path", dir).Build()
	}
	return nil
}

func (sw *SiteWatcher) rel(path string) (string, bool) {
	rel, err := filepath.Rel(sw.root, path)
	if err != nil || !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Run consumes events until ctx is done and closes the underlying watcher on return.
func (sw *SiteWatcher) Run(ctx context.Context) {
	defer func() { _ = sw.watcher.Close() }()

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		timer, fire = nil, nil
	}
	defer stopTimer()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !sw.handle(event, pending) {
				continue
			}
			// Quiet window restarts on every relevant event.
			stopTimer()
			timer = time.NewTimer(sw.debounce)
			fire = timer.C

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Site watcher error", logfields.Error(err))

		case <-fire:
			timer, fire = nil, nil
			batch := make([]string, 0, len(pending))
			for path := range pending {
				batch = append(batch, path)
			}
			clear(pending)
			slices.Sort(batch)
			slog.Debug("Site watcher batch ready", logfields.Pages(len(batch)))
			sw.onBatch(ctx, batch)
		}
	}
}

// handle records event in pending. Reports whether anything was added.
func (sw *SiteWatcher) handle(event fsnotify.Event, pending map[string]struct{}) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	rel, ok := sw.rel(event.Name)
	if !ok {
		return false
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return false
	}
	if info.IsDir() {
		if !event.Has(fsnotify.Create) || sw.filter.Excludes(rel) {
			return false
		}
		if err := sw.addTree(event.Name); err != nil {
			slog.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
		}
		// Pages may have landed before the watch was in place.
		return sw.seedDir(event.Name, pending)
	}

	if !sw.filter.Accepts(rel) {
		return false
	}
	pending[event.Name] = struct{}{}
	return true
}

func (sw *SiteWatcher) seedDir(dir string, pending map[string]struct{}) bool {
	added := false
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, ok := sw.rel(path); ok && sw.filter.Accepts(rel) {
			pending[path] = struct{}{}
			added = true
		}
		return nil
	})
	return added
}
