package service

import (
	"context"
	"encoding/json"

	"rule-chatbot-be/internal/pkg/logger"
	"rule-chatbot-be/pkg/events"
	"rule-chatbot-be/pkg/usage"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	tracker    *usage.Tracker
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	tracker *usage.Tracker,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		tracker:    tracker,
		logger:     log,
	}
}

// Consume subscribes to the interaction topic and feeds the usage tracker
// until ctx is cancelled.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	var event events.BaseEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		cs.logger.Error("Consumer", "Failed to unmarshal event", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	switch event.Type {
	case events.TypeChatInteraction:
		outcome, _ := event.Data["outcome"].(string)
		matchedID, _ := event.Data["matched_id"].(string)
		cs.tracker.RecordInteraction(outcome, matchedID)
	case events.TypeKnowledgeReloaded:
		cs.tracker.RecordReload()
	default:
		cs.logger.Debug("Consumer", "Ignoring event", map[string]interface{}{"type": event.Type})
	}
	msg.Ack()
}
