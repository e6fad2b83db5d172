package service

import (
	"context"
	"encoding/json"

	"clinician-dashboard-be/internal/model"
	"clinician-dashboard-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

// SessionEventHandler consumes session transitions. *notify.Deriver satisfies it.
type SessionEventHandler interface {
	HandleSessionEvent(event model.SessionEvent) error
	Toasts() []model.Toast
	DismissToast(id string) bool
	Log() []model.NotificationLogEntry
}

type INotificationService interface {
	Start(ctx context.Context) error
	Toasts(ctx context.Context) []model.Toast
	DismissToast(ctx context.Context, id string) error
	Log(ctx context.Context) []model.NotificationLogEntry
}

type notificationService struct {
	subscriber message.Subscriber
	topicName  string
	deriver    SessionEventHandler
	logger     logger.ILogger
}

func NewNotificationService(subscriber message.Subscriber, topicName string, deriver SessionEventHandler, log logger.ILogger) INotificationService {
	return &notificationService{
		subscriber: subscriber,
		topicName:  topicName,
		deriver:    deriver,
		logger:     log,
	}
}

// Start subscribes to the session topic and feeds the deriver until ctx ends.
func (s *notificationService) Start(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(msg)
		}
		s.logger.Info("NotificationService", "Session event subscription closed", nil)
	}()

	s.logger.Info("NotificationService", "Listening for session events", map[string]interface{}{"topic": s.topicName})
	return nil
}

// processMessage acks every message, including bad ones. The publisher blocks
// on the ack with the session timer locked.
func (s *notificationService) processMessage(msg *message.Message) {
	defer msg.Ack()

	var event model.SessionEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		s.logger.Error("NotificationService", "Failed to unmarshal session event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err,
		})
		return
	}

	if err := s.deriver.HandleSessionEvent(event); err != nil {
		s.logger.Warn("NotificationService", "Session event not handled", map[string]interface{}{
			"type":  event.Type,
			"error": err,
		})
		return
	}
	s.logger.Info("NotificationService", "Session event processed", map[string]interface{}{
		"type":       event.Type,
		"subject_id": event.SubjectID,
	})
}

func (s *notificationService) Toasts(_ context.Context) []model.Toast {
	return s.deriver.Toasts()
}

func (s *notificationService) DismissToast(_ context.Context, id string) error {
	if !s.deriver.DismissToast(id) {
		return model.ErrNotFound
	}
	return nil
}

func (s *notificationService) Log(_ context.Context) []model.NotificationLogEntry {
	return s.deriver.Log()
}
