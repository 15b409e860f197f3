package events

import "time"

type Type string

const (
	EventPhaseChanged Type = "session.phase_changed"
	EventTick         Type = "session.tick"
	EventTimerExpired Type = "session.timer_expired"
	EventViolation    Type = "session.violation"
	EventNotice       Type = "session.notice"
	EventCompleted    Type = "session.completed"
	EventFailed       Type = "session.failed"
)

// SessionEvent is the envelope published for everything the surrounding UI
// may want to observe about a running attempt.
type SessionEvent struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Type      Type           `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
