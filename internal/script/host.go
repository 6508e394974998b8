package script

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/state"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/timer"
)

// Host loads and tracks named scripts sharing one bus, store and timer
// registry.
type Host struct {
	bus    *event.Bus
	store  *state.Store
	timers *timer.Registry
	opts   []Option
	logger *zap.Logger

	mu      sync.Mutex
	scripts map[string]*Script
}

// NewHost creates a host. opts apply to every script it loads.
func NewHost(bus *event.Bus, store *state.Store, timers *timer.Registry, logger *zap.Logger, opts ...Option) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Host{
		bus:     bus,
		store:   store,
		timers:  timers,
		opts:    append([]Option{WithLogger(logger)}, opts...),
		logger:  logger,
		scripts: make(map[string]*Script),
	}
}

// LoadFile runs the file at path as a script named after its base name
// without extension.
func (h *Host) LoadFile(ctx context.Context, path string) (*Script, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return h.load(ctx, name, func(s *Script) error { return s.DoFile(ctx, path) })
}

// LoadString runs src as a script named name.
func (h *Host) LoadString(ctx context.Context, name, src string) (*Script, error) {
	return h.load(ctx, name, func(s *Script) error { return s.DoString(ctx, src) })
}

func (h *Host) load(ctx context.Context, name string, run func(*Script) error) (*Script, error) {
	h.mu.Lock()
	if _, ok := h.scripts[name]; ok {
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	s := New(name, h.bus, h.store, h.timers, h.opts...)
	h.scripts[name] = s
	h.mu.Unlock()

	if err := run(s); err != nil {
		h.Unload(name)
		return nil, err
	}
	h.logger.Info("script loaded", zap.String("script", name))
	return s, nil
}

// Get returns the script named name.
func (h *Host) Get(name string) (*Script, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.scripts[name]
	return s, ok
}

// Names returns the loaded script names in sorted order.
func (h *Host) Names() []string {
	h.mu.Lock()
	names := make([]string, 0, len(h.scripts))
	for name := range h.scripts {
		names = append(names, name)
	}
	h.mu.Unlock()
	slices.Sort(names)
	return names
}

// Unload closes and forgets the script named name.
func (h *Host) Unload(name string) bool {
	h.mu.Lock()
	s, ok := h.scripts[name]
	delete(h.scripts, name)
	h.mu.Unlock()

	if ok {
		s.Close()
	}
	return ok
}

// Close unloads every script.
func (h *Host) Close() {
	for _, name := range h.Names() {
		h.Unload(name)
	}
}
