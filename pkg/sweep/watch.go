package sweep

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const DefaultDebounce = 500 * time.Millisecond

// Watch calls onChange after any of files is written, created or renamed,
// batching bursts within debounce. The parent directories are watched so a
// file replaced by an editor is still seen. Watch returns when ctx is done
// or onChange fails.
func Watch(ctx context.Context, files []string, debounce time.Duration, log zerolog.Logger, onChange func([]string) error) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer w.Close()

	wanted := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		wanted[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	var (
		batch  []string
		seen   = make(map[string]bool)
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !wanted[abs] {
				continue
			}
			log.Debug().Str("file", abs).Str("op", event.Op.String()).Msg("change detected")

			if !seen[abs] {
				seen[abs] = true
				batch = append(batch, abs)
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher error")

		case <-timerC:
			changed := batch
			batch, seen = nil, make(map[string]bool)
			timer, timerC = nil, nil

			if err := onChange(changed); err != nil {
				return err
			}
		}
	}
}
