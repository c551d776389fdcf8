package service

import (
	"context"
	"encoding/json"
	"fmt"

	"rule-chatbot-be/internal/pkg/logger"
	"rule-chatbot-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// EventExporter ships events outside the process (NATS in production).
type EventExporter interface {
	Publish(ctx context.Context, event events.Event) error
}

type IPublisherService interface {
	Publish(ctx context.Context, event events.Event) error
}

type publisherService struct {
	publisher message.Publisher
	topicName string
	exporter  EventExporter
	logger    logger.ILogger
}

// NewPublisherService publishes on the internal bus and, when exporter is
// not nil, forwards the event to it. Export failures are logged only.
func NewPublisherService(topicName string, publisher message.Publisher, exporter EventExporter, log logger.ILogger) IPublisherService {
	return &publisherService{
		publisher: publisher,
		topicName: topicName,
		exporter:  exporter,
		logger:    log,
	}
}

func (ps *publisherService) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := ps.publisher.Publish(ps.topicName, msg); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	if ps.exporter != nil {
		if err := ps.exporter.Publish(ctx, event); err != nil {
			ps.logger.Warn("Publisher", "Failed to export event", map[string]interface{}{"type": event.EventType(), "error": err.Error()})
		}
	}
	return nil
}
