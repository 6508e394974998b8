// Package app wires the coordination core into one application and owns
// its lifecycle.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/component"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/config"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/event"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/logging"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/monitor"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/notify"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/script"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/snapshot"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/state"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/timer"
)

// Event names emitted by the application.
const (
	EventReady    = "app:ready"
	EventStopping = "app:stopping"
)

const shutdownTimeout = 5 * time.Second

// App is the central coordinator. Every component shares one bus, one
// store and one timer registry.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	bus        *event.Bus
	store      *state.Store
	timers     *timer.Registry
	components *component.Registry
	notifier   *notify.Notifier
	tracker    *notify.Tracker
	monitor    *monitor.Monitor
	metrics    *prometheus.Registry
	scripts    *script.Host

	file    *snapshot.File
	saver   *snapshot.Saver
	watcher *snapshot.Watcher

	running      atomic.Bool
	closed       atomic.Bool
	metricsAddr  atomic.Value
	shutdownOnce sync.Once
	shutdownErr  error
}

// New builds every component from cfg. When a snapshot path is set, the
// file is loaded into the store before New returns.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{cfg: cfg, logger: logger}

	a.bus = event.NewBus(
		event.WithLogger(logging.Component(logger, "event")),
		event.WithImportantEvents(cfg.Events.Important...),
		event.WithListenerTimeout(cfg.Events.ListenerTimeout.Duration),
	)
	a.store = state.NewStore(a.bus,
		state.WithLogger(logging.Component(logger, "state")),
		state.WithHistoryLimit(cfg.State.HistoryLimit),
	)
	a.timers = timer.NewRegistry(a.bus, timer.WithLogger(logging.Component(logger, "timer")))
	a.components = component.NewRegistry(a.bus)
	a.notifier = notify.NewNotifier(a.bus)
	a.tracker = notify.NewTracker(a.bus, cfg.Analytics.UserID, cfg.Analytics.Keep)
	a.monitor = monitor.New(a.bus, a.timers)
	a.metrics = monitor.NewRegistry(monitor.NewCollector(a.bus, a.timers, a.store))
	a.scripts = script.NewHost(a.bus, a.store, a.timers, logging.Component(logger, "script"))

	if err := a.openSnapshot(); err != nil {
		a.bus.Cleanup()
		return nil, err
	}
	return a, nil
}

func (a *App) openSnapshot() error {
	if a.cfg.Snapshot.Path == "" {
		return nil
	}

	file, err := snapshot.NewFile(a.cfg.Snapshot.Path)
	if err != nil {
		return &InitError{Component: "snapshot", Err: err}
	}
	tree, err := file.Read()
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return &InitError{Component: "snapshot", Err: err}
	default:
		a.store.Load(context.Background(), tree)
	}

	log := logging.Component(a.logger, "snapshot")
	if a.cfg.Snapshot.Watch {
		w, err := snapshot.NewWatcher(file, a.store, snapshot.WithLogger(log))
		if err != nil {
			return &InitError{Component: "snapshot watcher", Err: err}
		}
		a.watcher = w
	}
	a.file = file
	a.saver = snapshot.NewSaver(file, a.store, a.cfg.Snapshot.AutosaveDelay.Duration, snapshot.WithLogger(log))
	return nil
}

// Bus returns the application's event bus.
func (a *App) Bus() *event.Bus { return a.bus }

// Store returns the application's state store.
func (a *App) Store() *state.Store { return a.store }

// Timers returns the application's timer registry.
func (a *App) Timers() *timer.Registry { return a.timers }

// Components returns the component registry.
func (a *App) Components() *component.Registry { return a.components }

// Notifier returns the notification publisher.
func (a *App) Notifier() *notify.Notifier { return a.notifier }

// Tracker returns the analytics tracker.
func (a *App) Tracker() *notify.Tracker { return a.tracker }

// Scripts returns the Lua script host.
func (a *App) Scripts() *script.Host { return a.scripts }

// Metrics returns the Prometheus registry.
func (a *App) Metrics() *prometheus.Registry { return a.metrics }

// MetricsHandler serves the Prometheus registry.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{})
}

// MetricsAddr returns the address the metrics endpoint listens on, or ""
// when it is not running.
func (a *App) MetricsAddr() string {
	addr, _ := a.metricsAddr.Load().(string)
	return addr
}

// Run loads the configured scripts, starts the monitor, the snapshot
// watcher and the metrics endpoint, and blocks until ctx is done or one of
// them fails. It shuts the application down before returning.
func (a *App) Run(ctx context.Context) error {
	if a.closed.Load() {
		return ErrShutdown
	}
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	err := a.run(ctx)
	return multierr.Append(err, a.Shutdown())
}

func (a *App) run(ctx context.Context) error {
	for _, path := range a.cfg.Scripts.Paths {
		if _, err := a.scripts.LoadFile(ctx, path); err != nil {
			return &InitError{Component: "script", Err: err}
		}
	}

	var ln net.Listener
	if addr := a.cfg.Monitor.MetricsAddr; addr != "" {
		var err error
		if ln, err = net.Listen("tcp", addr); err != nil {
			return &InitError{Component: "metrics", Err: err}
		}
		a.metricsAddr.Store(ln.Addr().String())
	}

	a.monitor.Start(a.cfg.Monitor.Performance.Duration, a.cfg.Monitor.Memory.Duration)

	g, gctx := errgroup.WithContext(ctx)

	if a.watcher != nil {
		g.Go(func() error { return a.watcher.Run(gctx) })
	}

	if ln != nil {
		srv := &http.Server{Handler: a.metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	a.logger.Info("application ready",
		zap.Strings("scripts", a.scripts.Names()),
		zap.String("metrics", a.MetricsAddr()),
	)
	a.bus.Emit(ctx, EventReady, a.Stats())

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	return g.Wait()
}

func (a *App) metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.MetricsHandler())
	return mux
}

// Shutdown stops every component in dependency order: scripts, timers,
// the snapshot saver and watcher, components, then the bus. It is
// idempotent; later calls return the first result.
func (a *App) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.closed.Store(true)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		a.bus.Emit(ctx, EventStopping, nil)

		a.scripts.Close()
		a.monitor.Stop()
		a.timers.Cleanup()
		a.timers.Wait()

		var err error
		if a.saver != nil {
			err = multierr.Append(err, a.saver.Close())
		}
		if a.watcher != nil {
			err = multierr.Append(err, a.watcher.Close())
		}

		a.components.UnregisterAll(ctx)
		a.bus.Cleanup()
		a.metricsAddr.Store("")

		if err != nil {
			a.logger.Error("shutdown failed", zap.Error(err))
		} else {
			a.logger.Info("shutdown complete")
		}
		a.shutdownErr = err
	})
	return a.shutdownErr
}
