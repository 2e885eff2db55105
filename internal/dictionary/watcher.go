package dictionary

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a dictionary file whenever it changes on disk.
// A reload that fails to parse is logged and the previous dictionary stays active.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(*Dictionary)
	logger   *zap.Logger
}

// NewWatcher watches the directory holding path so that atomic replacement of
// the file is still observed.
func NewWatcher(path string, onChange func(*Dictionary), logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{path: abs, watcher: w, onChange: onChange, logger: logger}, nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("dictionary watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	d, err := Load(w.path)
	if err != nil {
		w.logger.Warn("dictionary reload failed, keeping previous", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.logger.Info("dictionary reloaded",
		zap.String("path", w.path),
		zap.Int("stop_words", len(d.StopWords)),
		zap.Int("genres", len(d.Genres)),
		zap.Int("quality", len(d.Quality)),
	)
	w.onChange(d)
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
