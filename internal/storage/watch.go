package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/radovskyb/watcher"
)

// Watch polls the feed file and calls onChange after it is modified, until
// ctx is canceled. Watcher errors go to onError when it is non-nil.
func (fs *FileStorage) Watch(ctx context.Context, interval time.Duration, onChange func(), onError func(error)) error {
	if err := fs.ensureExists(); err != nil {
		return err
	}

	w := watcher.New()
	w.SetMaxEvents(1)
	w.FilterOps(watcher.Write, watcher.Create, watcher.Rename, watcher.Move)

	if err := w.Add(fs.path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", fs.path, err)
	}

	started := make(chan error, 1)
	go func() {
		started <- w.Start(interval)
	}()
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.Event:
			onChange()
		case err := <-w.Error:
			if onError != nil {
				onError(err)
			}
		case <-w.Closed:
			return nil
		case err := <-started:
			if err != nil {
				return fmt.Errorf("feed watcher stopped: %w", err)
			}
			return nil
		}
	}
}
