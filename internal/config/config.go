package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "QUANTARA_"

// Config is the complete runtime configuration.
type Config struct {
	Log       LogConfig       `toml:"log" envPrefix:"LOG_"`
	Events    EventsConfig    `toml:"events" envPrefix:"EVENTS_"`
	State     StateConfig     `toml:"state" envPrefix:"STATE_"`
	Snapshot  SnapshotConfig  `toml:"snapshot" envPrefix:"SNAPSHOT_"`
	Monitor   MonitorConfig   `toml:"monitor" envPrefix:"MONITOR_"`
	Analytics AnalyticsConfig `toml:"analytics" envPrefix:"ANALYTICS_"`
	Scripts   ScriptsConfig   `toml:"scripts" envPrefix:"SCRIPTS_"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level" env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"`
	Output string `toml:"output" env:"OUTPUT"`
}

// EventsConfig configures the event bus.
type EventsConfig struct {
	// Important names events that are journaled to the log and re-emitted
	// as system:log.
	Important []string `toml:"important" env:"IMPORTANT" envSeparator:","`
	// ListenerTimeout bounds the context handed to each listener. Zero
	// means no deadline.
	ListenerTimeout Duration `toml:"listener_timeout" env:"LISTENER_TIMEOUT"`
}

// StateConfig configures the state store.
type StateConfig struct {
	HistoryLimit int `toml:"history_limit" env:"HISTORY_LIMIT"`
}

// SnapshotConfig configures state persistence. An empty Path disables it.
type SnapshotConfig struct {
	Path          string   `toml:"path" env:"PATH"`
	AutosaveDelay Duration `toml:"autosave_delay" env:"AUTOSAVE_DELAY"`
	Watch         bool     `toml:"watch" env:"WATCH"`
}

// MonitorConfig configures the system monitor. Zero disables a probe.
type MonitorConfig struct {
	Performance Duration `toml:"performance" env:"PERFORMANCE"`
	Memory      Duration `toml:"memory" env:"MEMORY"`
	// MetricsAddr is the listen address of the Prometheus endpoint.
	// Empty disables it.
	MetricsAddr string `toml:"metrics_addr" env:"METRICS_ADDR"`
}

// AnalyticsConfig configures the event tracker.
type AnalyticsConfig struct {
	UserID string `toml:"user_id" env:"USER_ID"`
	Keep   int    `toml:"keep" env:"KEEP"`
}

// ScriptsConfig lists Lua scripts started with the application.
type ScriptsConfig struct {
	Paths []string `toml:"paths" env:"PATHS" envSeparator:","`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
		Events: EventsConfig{
			Important: []string{
				"section:change",
				"fusion:start",
				"sensors:activate",
				"error:critical",
				"performance:warning",
				"conversation:send",
			},
		},
		State: StateConfig{
			HistoryLimit: 1000,
		},
		Snapshot: SnapshotConfig{
			AutosaveDelay: Duration{time.Second},
		},
		Monitor: MonitorConfig{
			Performance: Duration{5 * time.Second},
			Memory:      Duration{10 * time.Second},
		},
		Analytics: AnalyticsConfig{
			UserID: "anonymous",
			Keep:   100,
		},
	}
}

// Load returns the defaults overlaid with the TOML file at path (if it
// exists) and the environment. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		perr := &ParseError{Path: path, Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return perr
	}
	return nil
}

// Validate rejects negative durations and limits and unknown log formats.
// All problems are reported together.
func (c Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Log.Format == "json" || c.Log.Format == "console", "log.format %q", c.Log.Format)
	check(c.Events.ListenerTimeout.Duration >= 0, "events.listener_timeout is negative")
	check(c.State.HistoryLimit >= 0, "state.history_limit is negative")
	check(c.Snapshot.AutosaveDelay.Duration >= 0, "snapshot.autosave_delay is negative")
	check(c.Monitor.Performance.Duration >= 0, "monitor.performance is negative")
	check(c.Monitor.Memory.Duration >= 0, "monitor.memory is negative")
	check(c.Analytics.Keep >= 0, "analytics.keep is negative")
	check(!c.Snapshot.Watch || c.Snapshot.Path != "", "snapshot.watch requires snapshot.path")

	return err
}
