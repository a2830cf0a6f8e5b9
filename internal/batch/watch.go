package batch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// settle is how long a file must stay quiet before it is converted. Exporters write a POF in
// several chunks, each raising its own event.
const settle = 250 * time.Millisecond

// Watch converts every .pof file under dir that is created or written until ctx is done. New
// subdirectories are watched as they appear. Each conversion is passed to onResult.
func Watch(ctx context.Context, dir string, conv Converter, logger *log.Logger, onResult func(Result)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := watchRecursive(w, dir); err != nil {
		return err
	}
	logger.Info("watching", "dir", dir)

	pending := map[string]time.Time{}
	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := watchRecursive(w, ev.Name); err != nil {
						logger.Warn("cannot watch directory", "dir", ev.Name, "err", err)
					}
					continue
				}
			}
			if (ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) && strings.EqualFold(filepath.Ext(ev.Name), ".pof") {
				pending[ev.Name] = time.Now()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "err", err)
		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < settle {
					continue
				}
				delete(pending, path)
				r := processFile(ctx, conv, path)
				if !r.Success {
					logger.Error("conversion failed", "file", path, "err", r.Error)
				}
				if onResult != nil {
					onResult(r)
				}
			}
		}
	}
}

func watchRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
