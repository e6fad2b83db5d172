package model

import "time"

type SessionState struct {
	Active           bool       `json:"active"`
	SubjectID        string     `json:"subject_id,omitempty"`
	RemainingSeconds int        `json:"remaining_seconds"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
}

type SessionEventType string

const (
	SessionStarted SessionEventType = "SESSION_STARTED"
	SessionEnded   SessionEventType = "SESSION_ENDED"
)

// SessionEvent is published once per transition of the session timer.
type SessionEvent struct {
	Type           SessionEventType `json:"type"`
	SubjectID      string           `json:"subject_id"`
	StartedAt      time.Time        `json:"started_at"`
	ElapsedSeconds int              `json:"elapsed_seconds"`
	OccurredAt     time.Time        `json:"occurred_at"`
}
