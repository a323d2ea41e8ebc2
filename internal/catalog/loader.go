package catalog

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Loader caches parsed catalogs by path for the life of the process.
// Concurrent loads of the same path share one read.
type Loader struct {
	cache *cache.Cache
	group singleflight.Group
}

// NewLoader creates an empty loader.
func NewLoader() *Loader {
	return &Loader{cache: cache.New(cache.NoExpiration, 0)}
}

// Load returns the cached catalog for path, reading it on first use.
func (l *Loader) Load(path string) (*Catalog, error) {
	key := cacheKey(path)
	if v, ok := l.cache.Get(key); ok {
		return v.(*Catalog), nil
	}

	v, err, _ := l.group.Do(key, func() (any, error) {
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		c, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		l.cache.Set(key, c, cache.NoExpiration)
		logrus.WithFields(logrus.Fields{
			"path":      path,
			"tasks":     len(c.order),
			"providers": len(c.Providers),
		}).Debug("prompt catalog loaded")
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Catalog), nil
}

// Invalidate drops the cached catalog for path so the next Load rereads it.
func (l *Loader) Invalidate(path string) {
	l.cache.Delete(cacheKey(path))
}

// Watch invalidates the cached catalog whenever the file at path changes.
// Setup errors are returned directly; the watch itself runs in the background
// until ctx is cancelled. The parent directory is watched so that editors
// that replace the file on save are still noticed.
func (l *Loader) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	target := cacheKey(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	go l.watch(ctx, watcher, path, target)
	return nil
}

func (l *Loader) watch(ctx context.Context, watcher *fsnotify.Watcher, path, target string) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if cacheKey(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				l.Invalidate(path)
				logrus.WithFields(logrus.Fields{"path": path, "op": ev.Op.String()}).Info("prompt catalog changed, reloading on next use")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logrus.WithError(err).Warn("prompt catalog watcher error")
		}
	}
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
