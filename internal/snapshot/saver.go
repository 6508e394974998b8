package snapshot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/state"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/timer"
)

// Option configures a Saver or Watcher.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Saver writes the store to a File once changes have been quiet for the
// autosave delay.
type Saver struct {
	file      *File
	store     *state.Store
	debouncer *timer.Debouncer
	sub       event.Subscription
	logger    *zap.Logger
}

// NewSaver starts saving store to file after every burst of changes.
func NewSaver(file *File, store *state.Store, delay time.Duration, opts ...Option) *Saver {
	o := buildOptions(opts)
	s := &Saver{
		file:   file,
		store:  store,
		logger: o.logger,
	}
	s.debouncer = timer.NewDebouncer(delay, func() {
		if err := s.Save(); err != nil {
			s.logger.Error("autosave failed", zap.String("path", file.Path()), zap.Error(err))
		}
	})
	s.sub = store.Watch(func(state.Change) { s.debouncer.Trigger() }, event.WithPriority(event.PriorityLow))
	return s
}

// Save writes the current tree now.
func (s *Saver) Save() error {
	if err := s.file.Write(s.store.Snapshot()); err != nil {
		return err
	}
	s.logger.Debug("snapshot saved", zap.String("path", s.file.Path()))
	s.store.Bus().Emit(context.Background(), EventSaved, Saved{Path: s.file.Path()})
	return nil
}

// Pending reports whether an autosave is scheduled.
func (s *Saver) Pending() bool {
	return s.debouncer.Pending()
}

// Flush writes immediately if an autosave is pending.
func (s *Saver) Flush() error {
	if !s.debouncer.Pending() {
		return nil
	}
	s.debouncer.Cancel()
	return s.Save()
}

// Close stops watching the store and flushes.
func (s *Saver) Close() error {
	s.sub.Unsubscribe()
	return s.Flush()
}
