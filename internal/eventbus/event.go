package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// Type names a session lifecycle event.
type Type string

const (
	SessionCreated Type = "session_created"
	SessionExpired Type = "session_expired"
	SessionClosed  Type = "session_closed"
)

// Event is one lifecycle change of a dashboard session.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	SessionID  string    `json:"session_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Reason     string    `json:"reason,omitempty"` // "idle", "max_age", "disconnect", "shutdown"
}

// NewEvent stamps a fresh event id.
func NewEvent(typ Type, sessionID string, at time.Time, reason string) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       typ,
		SessionID:  sessionID,
		OccurredAt: at,
		Reason:     reason,
	}
}
