package dto

import (
	"encoding/json"
	"time"

	"clinician-dashboard-be/internal/model"
)

type MessageResponse struct {
	Index       int             `json:"index"`
	Id          string          `json:"id"`
	Role        string          `json:"role"`
	Content     string          `json:"content"`
	Attachments []model.FileRef `json:"attachments,omitempty"`
	IsSeed      bool            `json:"is_seed"`
	Pending     bool            `json:"pending,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	// DisplayDate is the first time this message was served at its index.
	DisplayDate time.Time `json:"display_date"`
}

type ConversationResponse struct {
	Key      string            `json:"key"`
	Pending  int               `json:"pending"`
	Messages []MessageResponse `json:"messages"`
}

type SendMessageRequest struct {
	Text        string          `json:"text"`
	Attachments []model.FileRef `json:"attachments,omitempty" validate:"max=10,dive"`
}

type SendMessageResponse struct {
	Key      string           `json:"key"`
	Pending  int              `json:"pending"`
	Reply    *MessageResponse `json:"reply,omitempty"`
	Error    string           `json:"error,omitempty"`
	Complete bool             `json:"complete"`
}

type DraftRequest struct {
	Text string `json:"text"`
}

type DraftResponse struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

type AnalysisResponse struct {
	PatientId string          `json:"patient_id"`
	History   json.RawMessage `json:"history"`
	Analysis  string          `json:"analysis"`
	Timestamp time.Time       `json:"timestamp"`
}
