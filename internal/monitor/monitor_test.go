package monitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/timer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setup(t *testing.T) (*Monitor, *event.Bus, *timer.Registry) {
	t.Helper()
	bus := event.NewBus()
	timers := timer.NewRegistry(bus)
	t.Cleanup(func() {
		timers.Cleanup()
		timers.Wait()
	})
	return New(bus, timers), bus, timers
}

func TestMonitor_EmitsSamples(t *testing.T) {
	m, bus, timers := setup(t)

	var perf, mem atomic.Int32
	bus.On(EventPerformance, event.Typed(func(_ context.Context, p Performance) error {
		if p.Goroutines > 0 {
			perf.Add(1)
		}
		return nil
	}))
	bus.On(EventMemory, event.Typed(func(_ context.Context, s Memory) error {
		if s.Total > 0 {
			mem.Add(1)
		}
		return nil
	}))

	m.Start(5*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, []string{TimerMemory, TimerPerformance}, timers.Intervals())

	require.Eventually(t, func() bool {
		return perf.Load() >= 2 && mem.Load() >= 2
	}, time.Second, time.Millisecond)

	m.Stop()
	assert.Empty(t, timers.Intervals())
}

func TestMonitor_DisabledProbe(t *testing.T) {
	m, _, timers := setup(t)

	m.Start(0, time.Hour)

	assert.Equal(t, []string{TimerMemory}, timers.Intervals())
}

func TestMonitor_Samples(t *testing.T) {
	m, _, _ := setup(t)

	p := m.Performance()
	assert.Positive(t, p.Goroutines)
	assert.Positive(t, p.HeapAlloc)
	assert.GreaterOrEqual(t, p.Uptime, time.Duration(0))

	s := m.Memory()
	assert.Positive(t, s.Used)
	assert.Positive(t, s.Limit)
}
