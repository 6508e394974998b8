package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event"
)

// EventTrack is emitted for every tracked analytics event.
const EventTrack = "analytics:track"

// DefaultKeep is the number of tracked events kept in memory.
const DefaultKeep = 100

// Tracked is the payload of EventTrack.
type Tracked struct {
	Name       string
	Properties map[string]any
	Time       time.Time
	Session    string
	User       string
}

// Tracker records analytics events for one session.
type Tracker struct {
	bus     *event.Bus
	session string
	user    string
	keep    int

	mu     sync.Mutex
	recent []Tracked
}

// NewTracker creates a tracker with a fresh session ID. keep bounds the
// in-memory history; zero or less means DefaultKeep.
func NewTracker(bus *event.Bus, user string, keep int) *Tracker {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Tracker{
		bus:     bus,
		session: uuid.NewString(),
		user:    user,
		keep:    keep,
	}
}

// Session returns the session ID.
func (t *Tracker) Session() string { return t.session }

// User returns the user ID.
func (t *Tracker) User() string { return t.user }

// Track emits EventTrack and remembers it.
func (t *Tracker) Track(ctx context.Context, name string, props map[string]any) {
	tr := Tracked{
		Name:       name,
		Properties: props,
		Time:       time.Now(),
		Session:    t.session,
		User:       t.user,
	}

	t.bus.Emit(ctx, EventTrack, tr)

	t.mu.Lock()
	t.recent = append(t.recent, tr)
	if over := len(t.recent) - t.keep; over > 0 {
		t.recent = append(t.recent[:0:0], t.recent[over:]...)
	}
	t.mu.Unlock()
}

// Recent returns the remembered events, oldest first.
func (t *Tracker) Recent() []Tracked {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Tracked(nil), t.recent...)
}
