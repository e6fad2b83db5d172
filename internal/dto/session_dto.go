package dto

import "time"

type StartSessionRequest struct {
	SubjectId string `json:"subject_id" validate:"required"`
}

type SessionResponse struct {
	Active           bool       `json:"active"`
	SubjectId        string     `json:"subject_id,omitempty"`
	RemainingSeconds int        `json:"remaining_seconds"`
	CeilingSeconds   int        `json:"ceiling_seconds"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
}

type EndSessionResponse struct {
	SubjectId      string    `json:"subject_id"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
}
