package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"clinician-dashboard-be/internal/model"
	"clinician-dashboard-be/internal/pkg/logger"
	"clinician-dashboard-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const mirrorTimeout = 2 * time.Second

// EventMirror forwards events to an external bus. *nats.Publisher satisfies it.
type EventMirror interface {
	Publish(ctx context.Context, event events.Event) error
}

type IPublisherService interface {
	PublishSessionEvent(ctx context.Context, event model.SessionEvent) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
	mirror    EventMirror
	logger    logger.ILogger
}

// NewPublisherService publishes session events on topicName. mirror may be nil.
func NewPublisherService(topicName string, publisher message.Publisher, mirror EventMirror, log logger.ILogger) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
		mirror:    mirror,
		logger:    log,
	}
}

func (ps *publisherService) PublishSessionEvent(ctx context.Context, event model.SessionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", string(event.Type))
	msg.SetContext(ctx)

	if err := ps.publisher.Publish(ps.topicName, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	if ps.mirror != nil {
		mctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
		defer cancel()
		if err := ps.mirror.Publish(mctx, events.FromSessionEvent(event)); err != nil {
			ps.logger.Warn("PublisherService", "Failed to mirror session event", map[string]interface{}{
				"type":  event.Type,
				"error": err,
			})
		}
	}
	return nil
}
