package model

import (
	"encoding/json"
	"time"
)

// GeneralKey selects the general assistant conversation. Any other key is a patient id.
const GeneralKey = "general"

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// FileRef is an attachment sent along with a user message.
type FileRef struct {
	Name        string `json:"name" validate:"required"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
	URL         string `json:"url,omitempty"`
}

type Message struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	Attachments []FileRef `json:"attachments,omitempty"`
	IsSeed      bool      `json:"is_seed"`
	// Pending marks a bot message whose content is being regenerated.
	Pending   bool      `json:"pending,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func IsGeneralKey(key string) bool {
	return key == GeneralKey
}

// CloneMessages copies the slice and every attachment list so callers can
// never mutate a list held by the store.
func CloneMessages(in []Message) []Message {
	if in == nil {
		return nil
	}
	out := make([]Message, len(in))
	copy(out, in)
	for i := range out {
		if out[i].Attachments != nil {
			out[i].Attachments = append([]FileRef(nil), out[i].Attachments...)
		}
	}
	return out
}

// AnalysisBundle is the last successful patient analysis, cached per patient.
type AnalysisBundle struct {
	PatientID string          `json:"patient_id"`
	History   json.RawMessage `json:"history"`
	Analysis  string          `json:"analysis"`
	Timestamp time.Time       `json:"timestamp"`
}
