package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for a burst of file events to
// settle before reloading.
const DefaultDebounce = 250 * time.Millisecond

// Watch reloads dir into r whenever a type file in it changes, until ctx is
// done. onReload, if non-nil, is called after every reload attempt and for
// watcher errors.
func (r *Registry) Watch(ctx context.Context, dir string, debounce time.Duration, onReload func(LoadResult, error)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if onReload == nil {
		onReload = func(LoadResult, error) {}
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch types dir %q: %w", dir, err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isTypeFile(filepath.Base(ev.Name)) || ev.Op == fsnotify.Chmod {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			onReload(LoadResult{}, fmt.Errorf("watch types dir %q: %w", dir, err))
		case <-timer.C:
			onReload(r.ReloadFromDir(dir))
		}
	}
}
