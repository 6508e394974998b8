package state

import "go.uber.org/zap"

// DefaultHistoryLimit is the number of changes kept when no limit is set.
const DefaultHistoryLimit = 1000

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHistoryLimit bounds the change history. Zero or less disables it.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		s.history = newHistory(n)
	}
}
