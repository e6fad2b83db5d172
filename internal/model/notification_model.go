package model

import "time"

type NotificationKind string

const (
	NotificationSessionStarted NotificationKind = "session_started"
	NotificationSessionEnded   NotificationKind = "session_ended"
)

// Toast is a transient, dismissible notification.
type Toast struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	SubjectID string           `json:"subject_id"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// NotificationLogEntry is the permanent record of one session. It is created
// on start and mutated in place when the session ends.
type NotificationLogEntry struct {
	ID             string           `json:"id"`
	Kind           NotificationKind `json:"kind"`
	SubjectID      string           `json:"subject_id"`
	Message        string           `json:"message"`
	StartedAt      time.Time        `json:"started_at"`
	EndedAt        *time.Time       `json:"ended_at,omitempty"`
	ElapsedSeconds *int             `json:"elapsed_seconds,omitempty"`
}
