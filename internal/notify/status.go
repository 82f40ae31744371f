package notify

import (
	"fmt"
	"time"
)

// ConnState is the connection indicator state.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateConnected
	StateDisconnected
	StateReconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

func (s ConnState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *ConnState) UnmarshalText(b []byte) error {
	for st := StateConnecting; st <= StateReconnecting; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown connection state %q", b)
}

// StatusAutoHide is how long the indicator stays up after connecting.
const StatusAutoHide = 3 * time.Second

// Status drives the connection indicator only.
type Status struct {
	State       ConnState `json:"state"`
	Attempt     int       `json:"attempt,omitempty"`
	MaxAttempts int       `json:"max_attempts,omitempty"`
	Text        string    `json:"text"`
	Since       time.Time `json:"since"`
}

// Visible is true for every state except connected, which hides itself
// after StatusAutoHide.
func (s Status) Visible(now time.Time) bool {
	if s.State != StateConnected {
		return true
	}
	return now.Sub(s.Since) < StatusAutoHide
}

func Connecting(now time.Time) Status {
	return Status{State: StateConnecting, Text: "Connecting to server...", Since: now}
}

func Connected(now time.Time) Status {
	return Status{State: StateConnected, Text: "Connected to server", Since: now}
}

func ConnectError(attempt, max int, now time.Time) Status {
	return Status{
		State:       StateDisconnected,
		Attempt:     attempt,
		MaxAttempts: max,
		Text:        fmt.Sprintf("Connection error (attempt %d/%d)", attempt, max),
		Since:       now,
	}
}

func Reconnecting(attempt, max int, now time.Time) Status {
	return Status{
		State:       StateReconnecting,
		Attempt:     attempt,
		MaxAttempts: max,
		Text:        fmt.Sprintf("Reconnecting (attempt %d/%d)...", attempt, max),
		Since:       now,
	}
}

func Disconnected(now time.Time) Status {
	return Status{State: StateDisconnected, Text: "Disconnected from server", Since: now}
}

// GaveUp is the terminal status once the reconnect budget is spent. It stays
// up until the user reloads.
func GaveUp(max int, now time.Time) Status {
	return Status{
		State:       StateDisconnected,
		Attempt:     max,
		MaxAttempts: max,
		Text:        fmt.Sprintf("Disconnected from server after %d attempts. Reload to retry.", max),
		Since:       now,
	}
}
