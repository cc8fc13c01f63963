// Package notify delivers user-facing session notifications such as "Your session
// has expired." to whatever surface the client renders them on.
package notify

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

//go:generate mockgen -destination=../internal/mocks/notifier_mock.go -package=mocks github.com/jrsteele09/go-estate-session/notify Notifier

type Kind string

const (
	KindSessionExpired Kind = "session_expired"
	KindLoginFailed    Kind = "login_failed"
)

// Message is the user-facing text for the kind.
func (k Kind) Message() string {
	switch k {
	case KindSessionExpired:
		return "Your session has expired."
	case KindLoginFailed:
		return "Failed to login."
	default:
		return string(k)
	}
}

type Event struct {
	ID     uuid.UUID
	Kind   Kind
	Login  string
	Reason error
	At     time.Time
}

func NewEvent(kind Kind, login string, reason error, at time.Time) Event {
	return Event{
		ID:     uuid.New(),
		Kind:   kind,
		Login:  login,
		Reason: reason,
		At:     at,
	}
}

// MarshalZerologObject lets an Event be logged with zerolog's Object field.
func (e Event) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("id", e.ID.String()).
		Str("kind", string(e.Kind)).
		Str("login", e.Login).
		Time("at", e.At)
	if e.Reason != nil {
		ev.Str("reason", e.Reason.Error())
	}
}

// Notifier must not block the caller for long; it is invoked from the session
// manager's state transitions.
type Notifier interface {
	Notify(Event)
}

// Func adapts a function to Notifier.
type Func func(Event)

func (f Func) Notify(e Event) {
	f(e)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Notify(Event) {}

// Multi fans an event out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(e Event) {
	for _, n := range m {
		n.Notify(e)
	}
}
