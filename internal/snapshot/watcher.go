package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/state"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/timer"
)

// reloadDelay collapses the several events one external save produces.
const reloadDelay = 50 * time.Millisecond

// Watcher reloads a File into a store when it is changed on disk by
// someone other than this process's Saver. Reloads merge into the store;
// keys removed from the file stay in the store.
type Watcher struct {
	file   *File
	store  *state.Store
	fsw    *fsnotify.Watcher
	reload *timer.Debouncer
	logger *zap.Logger
}

// NewWatcher watches the directory holding file.
func NewWatcher(file *File, store *state.Store, opts ...Option) (*Watcher, error) {
	o := buildOptions(opts)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(file.Path())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fsw.Close()
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		file:   file,
		store:  store,
		fsw:    fsw,
		logger: o.logger,
	}
	w.reload = timer.NewDebouncer(reloadDelay, w.Reload)
	return w, nil
}

// Run processes file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	defer w.reload.Cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.file.Path() {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.reload.Trigger()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("snapshot watcher error", zap.Error(err))
		}
	}
}

// Reload reads the file and merges it into the store unless it is the
// Saver's own last write.
func (w *Watcher) Reload() {
	data, err := os.ReadFile(w.file.Path())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("snapshot reload failed", zap.Error(err))
		}
		return
	}
	if w.file.written(data) {
		return
	}

	tree, err := Decode(data)
	if err != nil {
		w.logger.Warn("snapshot reload failed", zap.String("path", w.file.Path()), zap.Error(err))
		return
	}

	ctx := context.Background()
	w.store.Load(ctx, tree)
	w.logger.Info("snapshot reloaded", zap.String("path", w.file.Path()), zap.Int("keys", len(tree)))
	w.store.Bus().Emit(ctx, EventReloaded, Reloaded{Path: w.file.Path(), Keys: len(tree)})
}

// Close stops watching. A running Run returns once the event channels
// close. Close may be called more than once.
func (w *Watcher) Close() error {
	w.reload.Cancel()
	return w.fsw.Close()
}
