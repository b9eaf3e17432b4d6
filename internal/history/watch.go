package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"video-transcriber/internal/domain"
)

const watchDebounce = 150 * time.Millisecond

// Watch calls onChange with the current entries whenever the history file
// is created, written, or replaced. The parent directory is watched because
// Save replaces the file by rename. Watch returns once the watcher is
// registered; it stops when ctx is done.
func (s *Store) Watch(ctx context.Context, onChange func([]domain.HistoryEntry)) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create history watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch history directory: %w", err)
	}

	go s.watchLoop(ctx, watcher, onChange)
	return nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, onChange func([]domain.HistoryEntry)) {
	defer watcher.Close()

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	target := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				if ctx.Err() != nil {
					return
				}
				onChange(s.read())
			})
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.WithError(err).Warn("history watcher error")
		}
	}
}
