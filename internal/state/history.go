package state

import (
	"sync"
	"time"
)

// Entry is one recorded change.
type Entry struct {
	Change
	Time time.Time
}

// history is a fixed-size ring of changes.
type history struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

func newHistory(limit int) *history {
	if limit <= 0 {
		return &history{}
	}
	return &history{entries: make([]Entry, limit)}
}

func (h *history) record(c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == 0 {
		return
	}
	h.entries[h.next] = Entry{Change: c, Time: time.Now()}
	h.next++
	if h.next == len(h.entries) {
		h.next = 0
		h.full = true
	}
}

// list returns entries oldest first.
func (h *history) list() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.full {
		return append([]Entry(nil), h.entries[:h.next]...)
	}
	out := make([]Entry, 0, len(h.entries))
	out = append(out, h.entries[h.next:]...)
	return append(out, h.entries[:h.next]...)
}

func (h *history) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clear(h.entries)
	h.next = 0
	h.full = false
}
