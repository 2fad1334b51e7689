package timer

import "time"

// EventKind identifies what a countdown just did.
type EventKind string

const (
	EventStarted        EventKind = "started"
	EventTicked         EventKind = "ticked"
	EventPaused         EventKind = "paused"
	EventResumed        EventKind = "resumed"
	EventExpired        EventKind = "expired"
	EventStopped        EventKind = "stopped"
	EventOptionsChanged EventKind = "options_changed"
)

// IsStateChange reports whether the event marks a transition rather
// than the periodic tick. Persistence hooks key off this to avoid
// writing on every tick.
func (k EventKind) IsStateChange() bool {
	return k != EventTicked
}

// Event is a point-in-time snapshot delivered to listeners. Values are
// copies, safe to hold after the callback returns.
type Event struct {
	Kind        EventKind     `json:"kind"`
	At          time.Time     `json:"at"`
	State       State         `json:"state"`
	TimeLeft    time.Duration `json:"time_left"`
	TimeElapsed time.Duration `json:"time_elapsed"`
	TimeExpired time.Duration `json:"time_expired,omitempty"`
}
