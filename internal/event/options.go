package event

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a Bus.
type Option func(*busConfig)

type busConfig struct {
	logger          *zap.Logger
	listenerTimeout time.Duration
	important       []string
}

func defaultBusConfig() busConfig {
	return busConfig{
		logger: zap.NewNop(),
	}
}

// WithLogger sets the logger used to report listener failures and
// important events.
func WithLogger(l *zap.Logger) Option {
	return func(c *busConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithListenerTimeout gives every listener a context deadline.
// Listeners that ignore ctx are not interrupted.
func WithListenerTimeout(d time.Duration) Option {
	return func(c *busConfig) {
		c.listenerTimeout = d
	}
}

// WithImportantEvents marks event names that are journaled on every emit.
func WithImportantEvents(names ...string) Option {
	return func(c *busConfig) {
		c.important = append(c.important, names...)
	}
}
