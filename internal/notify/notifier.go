package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event"
)

// Event names emitted by the Notifier.
const (
	EventShow    = "notification:show"
	EventDismiss = "notification:dismiss"
)

// Kind classifies a notification.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Notification is the payload of EventShow.
type Notification struct {
	ID       string
	Message  string
	Kind     Kind
	Time     time.Time
	Duration time.Duration
	Extra    map[string]any
}

// Dismissal is the payload of EventDismiss.
type Dismissal struct {
	ID string
}

// Option customises a notification.
type Option func(*Notification)

// WithDuration sets how long the notification should stay visible.
func WithDuration(d time.Duration) Option {
	return func(n *Notification) { n.Duration = d }
}

// WithExtra attaches an arbitrary field.
func WithExtra(key string, value any) Option {
	return func(n *Notification) {
		if n.Extra == nil {
			n.Extra = make(map[string]any)
		}
		n.Extra[key] = value
	}
}

// Notifier emits notification events.
type Notifier struct {
	bus *event.Bus
}

// NewNotifier creates a Notifier emitting on bus.
func NewNotifier(bus *event.Bus) *Notifier {
	return &Notifier{bus: bus}
}

// Notify emits EventShow and returns the new notification's ID. An empty
// kind means KindInfo.
func (n *Notifier) Notify(ctx context.Context, message string, kind Kind, opts ...Option) string {
	if kind == "" {
		kind = KindInfo
	}
	note := Notification{
		ID:      uuid.NewString(),
		Message: message,
		Kind:    kind,
		Time:    time.Now(),
	}
	for _, opt := range opts {
		opt(&note)
	}

	n.bus.Emit(ctx, EventShow, note)
	return note.ID
}

// Dismiss emits EventDismiss for id.
func (n *Notifier) Dismiss(ctx context.Context, id string) {
	n.bus.Emit(ctx, EventDismiss, Dismissal{ID: id})
}
