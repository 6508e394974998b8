// Package monitor publishes periodic runtime measurements on the event bus.
package monitor

import (
	"context"
	"runtime"
	"time"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event"
	"github.com/QEbellavita/QuantaraEI-sub001/internal/timer"
)

// Timer names used by the monitor.
const (
	TimerPerformance = "performanceMonitor"
	TimerMemory      = "memoryMonitor"
)

// Event names emitted by the monitor.
const (
	EventPerformance = "system:performance"
	EventMemory      = "system:memory"
)

// Performance is the payload of EventPerformance.
type Performance struct {
	Time       time.Time
	Uptime     time.Duration
	Goroutines int
	HeapAlloc  uint64
	NumGC      uint32
	PauseTotal time.Duration
}

// Memory is the payload of EventMemory.
type Memory struct {
	Used  uint64
	Total uint64
	Limit int64
}

// Monitor samples the Go runtime on named intervals.
type Monitor struct {
	bus     *event.Bus
	timers  *timer.Registry
	started time.Time
}

// New creates a monitor that schedules itself on timers.
func New(bus *event.Bus, timers *timer.Registry) *Monitor {
	return &Monitor{bus: bus, timers: timers, started: time.Now()}
}

// Start installs the probes. A non-positive interval leaves that probe off.
// Calling Start again replaces the running probes.
func (m *Monitor) Start(performance, memory time.Duration) {
	if performance > 0 {
		m.timers.SetInterval(TimerPerformance, m.emitPerformance, performance)
	}
	if memory > 0 {
		m.timers.SetInterval(TimerMemory, m.emitMemory, memory)
	}
}

// Stop removes both probes.
func (m *Monitor) Stop() {
	m.timers.ClearInterval(TimerPerformance)
	m.timers.ClearInterval(TimerMemory)
}

// Performance takes one performance sample.
func (m *Monitor) Performance() Performance {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return Performance{
		Time:       time.Now(),
		Uptime:     time.Since(m.started),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  ms.HeapAlloc,
		NumGC:      ms.NumGC,
		PauseTotal: time.Duration(ms.PauseTotalNs),
	}
}

// Memory takes one memory sample. Limit is the soft memory limit.
func (m *Monitor) Memory() Memory {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return Memory{
		Used:  ms.HeapInuse,
		Total: ms.Sys,
		Limit: memoryLimit(),
	}
}

func (m *Monitor) emitPerformance() {
	m.bus.Emit(context.Background(), EventPerformance, m.Performance())
}

func (m *Monitor) emitMemory() {
	m.bus.Emit(context.Background(), EventMemory, m.Memory())
}
