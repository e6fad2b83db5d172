package mapper

import (
	"time"

	"clinician-dashboard-be/internal/dto"
	"clinician-dashboard-be/internal/model"
)

type DashboardMapper struct{}

func NewDashboardMapper() *DashboardMapper {
	return &DashboardMapper{}
}

func (m *DashboardMapper) ToMessageResponse(index int, msg model.Message, displayDate time.Time) dto.MessageResponse {
	var attachments []model.FileRef
	if len(msg.Attachments) > 0 {
		attachments = append(attachments, msg.Attachments...)
	}
	return dto.MessageResponse{
		Index:       index,
		Id:          msg.ID,
		Role:        string(msg.Role),
		Content:     msg.Content,
		Attachments: attachments,
		IsSeed:      msg.IsSeed,
		Pending:     msg.Pending,
		CreatedAt:   msg.CreatedAt,
		DisplayDate: displayDate,
	}
}

func (m *DashboardMapper) ToSessionResponse(state model.SessionState, ceiling int) *dto.SessionResponse {
	return &dto.SessionResponse{
		Active:           state.Active,
		SubjectId:        state.SubjectID,
		RemainingSeconds: state.RemainingSeconds,
		CeilingSeconds:   ceiling,
		StartedAt:        state.StartedAt,
	}
}

func (m *DashboardMapper) ToEndSessionResponse(ev model.SessionEvent) *dto.EndSessionResponse {
	return &dto.EndSessionResponse{
		SubjectId:      ev.SubjectID,
		ElapsedSeconds: ev.ElapsedSeconds,
		StartedAt:      ev.StartedAt,
		EndedAt:        ev.OccurredAt,
	}
}

func (m *DashboardMapper) ToAnalysisResponse(b model.AnalysisBundle) *dto.AnalysisResponse {
	return &dto.AnalysisResponse{
		PatientId: b.PatientID,
		History:   b.History,
		Analysis:  b.Analysis,
		Timestamp: b.Timestamp,
	}
}
