package service

import (
	"context"
	"strings"

	"clinician-dashboard-be/internal/dto"
	"clinician-dashboard-be/internal/model"
)

// TabController is the tab state machine. *tabs.Manager satisfies it.
type TabController interface {
	Open(tab model.Tab) error
	SwitchTo(id string) error
	RequestClose(id string) error
	ConfirmClose() error
	CancelClose() error
	ObserveRoute(path string) error
	Snapshot() model.TabSnapshot
}

type ITabService interface {
	Snapshot(ctx context.Context) model.TabSnapshot
	Open(ctx context.Context, req *dto.OpenTabRequest) (model.TabSnapshot, error)
	Activate(ctx context.Context, id string) (model.TabSnapshot, error)
	RequestClose(ctx context.Context, id string) (model.TabSnapshot, error)
	ConfirmClose(ctx context.Context) (model.TabSnapshot, error)
	CancelClose(ctx context.Context) (model.TabSnapshot, error)
	ObserveRoute(ctx context.Context, path string) (model.TabSnapshot, error)
}

type tabService struct {
	tabs TabController
}

func NewTabService(tabs TabController) ITabService {
	return &tabService{tabs: tabs}
}

func (s *tabService) Snapshot(_ context.Context) model.TabSnapshot {
	return s.tabs.Snapshot()
}

func (s *tabService) Open(_ context.Context, req *dto.OpenTabRequest) (model.TabSnapshot, error) {
	tab := model.Tab{ID: strings.TrimSpace(req.Id), DisplayName: strings.TrimSpace(req.DisplayName)}
	return s.after(s.tabs.Open(tab))
}

func (s *tabService) Activate(_ context.Context, id string) (model.TabSnapshot, error) {
	return s.after(s.tabs.SwitchTo(id))
}

func (s *tabService) RequestClose(_ context.Context, id string) (model.TabSnapshot, error) {
	return s.after(s.tabs.RequestClose(id))
}

func (s *tabService) ConfirmClose(_ context.Context) (model.TabSnapshot, error) {
	return s.after(s.tabs.ConfirmClose())
}

func (s *tabService) CancelClose(_ context.Context) (model.TabSnapshot, error) {
	return s.after(s.tabs.CancelClose())
}

func (s *tabService) ObserveRoute(_ context.Context, path string) (model.TabSnapshot, error) {
	return s.after(s.tabs.ObserveRoute(path))
}

func (s *tabService) after(err error) (model.TabSnapshot, error) {
	if err != nil {
		return model.TabSnapshot{}, err
	}
	return s.tabs.Snapshot(), nil
}
