package service

import (
	"context"
	"strings"

	"clinician-dashboard-be/internal/dto"
	"clinician-dashboard-be/internal/mapper"
	"clinician-dashboard-be/internal/model"
	"clinician-dashboard-be/internal/pkg/logger"
)

// SessionClock is the session countdown. *sessiontimer.Timer satisfies it.
type SessionClock interface {
	Start(subjectID string) (model.SessionState, error)
	End() (model.SessionEvent, error)
	State() model.SessionState
	Ceiling() int
}

type ISessionService interface {
	State(ctx context.Context) *dto.SessionResponse
	Start(ctx context.Context, req *dto.StartSessionRequest) (*dto.SessionResponse, error)
	End(ctx context.Context) (*dto.EndSessionResponse, error)
}

type sessionService struct {
	clock  SessionClock
	mapper *mapper.DashboardMapper
	logger logger.ILogger
}

func NewSessionService(clock SessionClock, log logger.ILogger) ISessionService {
	return &sessionService{
		clock:  clock,
		mapper: mapper.NewDashboardMapper(),
		logger: log,
	}
}

func (s *sessionService) State(_ context.Context) *dto.SessionResponse {
	return s.mapper.ToSessionResponse(s.clock.State(), s.clock.Ceiling())
}

func (s *sessionService) Start(_ context.Context, req *dto.StartSessionRequest) (*dto.SessionResponse, error) {
	subject := strings.TrimSpace(req.SubjectId)
	if subject == "" || model.IsGeneralKey(subject) {
		return nil, model.ErrInvalidSubject
	}
	state, err := s.clock.Start(subject)
	if err != nil {
		s.logger.Warn("SessionService", "Session start rejected", map[string]interface{}{"subject_id": subject, "error": err})
		return nil, err
	}
	return s.mapper.ToSessionResponse(state, s.clock.Ceiling()), nil
}

func (s *sessionService) End(_ context.Context) (*dto.EndSessionResponse, error) {
	ev, err := s.clock.End()
	if err != nil {
		return nil, err
	}
	return s.mapper.ToEndSessionResponse(ev), nil
}
