package events

import (
	"time"

	"github.com/google/uuid"
)

// Event defines the contract for all system events.
type Event interface {
	// EventID uniquely identifies one occurrence.
	EventID() string

	// EventType returns the unique code for this event (e.g., "CHAT_INTERACTION").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const (
	TypeChatInteraction   = "CHAT_INTERACTION"
	TypeKnowledgeReloaded = "KNOWLEDGE_RELOADED"
)

// BaseEvent is the only Event implementation; constructors below fill it.
type BaseEvent struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e BaseEvent) EventID() string {
	return e.ID
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func newEvent(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}

// NewChatInteraction records which branch answered a message.
func NewChatInteraction(userKey, outcome, matchedID string, structured bool) BaseEvent {
	return newEvent(TypeChatInteraction, map[string]interface{}{
		"user_key":   userKey,
		"outcome":    outcome,
		"matched_id": matchedID,
		"structured": structured,
	})
}

// NewKnowledgeReloaded records a successful knowledge base swap.
func NewKnowledgeReloaded(rules, facts int) BaseEvent {
	return newEvent(TypeKnowledgeReloaded, map[string]interface{}{
		"rules": rules,
		"facts": facts,
	})
}
