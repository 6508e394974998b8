package app

import "github.com/QEbellavita/QuantaraEI-sub001/internal/event"

// Stats describes the running application.
type Stats struct {
	Bus        event.Stats
	Intervals  []string
	Timeouts   []string
	Components []string
	Scripts    []string
	History    int
	State      map[string]any
}

// Stats returns registered events, active timers, loaded components and
// scripts, and a copy of the state tree.
func (a *App) Stats() Stats {
	return Stats{
		Bus:        a.bus.Stats(),
		Intervals:  a.timers.Intervals(),
		Timeouts:   a.timers.Timeouts(),
		Components: a.components.Names(),
		Scripts:    a.scripts.Names(),
		History:    len(a.store.History()),
		State:      a.store.Snapshot(),
	}
}
