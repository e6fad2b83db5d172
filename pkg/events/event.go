package events

import (
	"time"

	"clinician-dashboard-be/internal/model"
)

// Event is anything that can be mirrored onto the external bus.
type Event interface {
	// EventType is the subject suffix, e.g. "SESSION_STARTED".
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// FromSessionEvent flattens a session transition into a bus event.
func FromSessionEvent(ev model.SessionEvent) BaseEvent {
	data := map[string]interface{}{
		"subject_id": ev.SubjectID,
		"started_at": ev.StartedAt.UTC().Format(time.RFC3339),
	}
	if ev.Type == model.SessionEnded {
		data["elapsed_seconds"] = ev.ElapsedSeconds
	}
	return BaseEvent{
		Type:       string(ev.Type),
		Data:       data,
		OccurredAt: ev.OccurredAt,
	}
}
