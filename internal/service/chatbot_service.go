package service

import (
	"context"
	"time"

	"rule-chatbot-be/internal/dto"
	"rule-chatbot-be/internal/pkg/logger"
	"rule-chatbot-be/pkg/conversation"
	"rule-chatbot-be/pkg/events"
	"rule-chatbot-be/pkg/knowledge"
)

// SessionCounter reports how many sessions the store currently holds.
type SessionCounter interface {
	Count(ctx context.Context) (int, error)
}

// ConnectionCounter reports how many websocket clients are connected locally.
type ConnectionCounter interface {
	Count() int
}

// IChatbotService answers user messages and reports the bot health.
type IChatbotService interface {
	GetResponse(ctx context.Context, userKey, question string) (conversation.Response, error)
	Health(ctx context.Context) (*dto.HealthResponse, error)
}

type chatbotService struct {
	interpreter *conversation.Interpreter
	knowledge   *knowledge.Store
	sessions    SessionCounter
	connections ConnectionCounter
	publisher   IPublisherService
	logger      logger.ILogger
}

func NewChatbotService(
	interpreter *conversation.Interpreter,
	kb *knowledge.Store,
	sessions SessionCounter,
	connections ConnectionCounter,
	publisher IPublisherService,
	log logger.ILogger,
) IChatbotService {
	return &chatbotService{
		interpreter: interpreter,
		knowledge:   kb,
		sessions:    sessions,
		connections: connections,
		publisher:   publisher,
		logger:      log,
	}
}

func (s *chatbotService) GetResponse(ctx context.Context, userKey, question string) (conversation.Response, error) {
	start := time.Now()

	resp, err := s.interpreter.Interpret(ctx, userKey, question, s.knowledge.Current())
	if err != nil {
		s.logger.Error("ChatbotService", "Failed to interpret message", map[string]interface{}{
			"user_key": userKey,
			"error":    err.Error(),
		})
		return conversation.Response{}, err
	}

	s.logger.Info("ChatbotService", "Message answered", map[string]interface{}{
		"user_key":    userKey,
		"outcome":     string(resp.Outcome),
		"matched_id":  resp.MatchedID,
		"structured":  resp.Structured(),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if s.publisher != nil {
		evt := events.NewChatInteraction(userKey, string(resp.Outcome), resp.MatchedID, resp.Structured())
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("ChatbotService", "Failed to publish interaction", map[string]interface{}{"error": err.Error()})
		}
	}
	return resp, nil
}

func (s *chatbotService) Health(ctx context.Context) (*dto.HealthResponse, error) {
	base := s.knowledge.Current()
	rules, facts := base.Stats()

	sessions, err := s.sessions.Count(ctx)
	if err != nil {
		return nil, err
	}

	res := &dto.HealthResponse{
		Status:   "ok",
		Rules:    rules,
		Facts:    facts,
		Sessions: sessions,
	}
	if s.connections != nil {
		res.Connections = s.connections.Count()
	}
	if base != nil {
		res.KnowledgeLoaded = base.LoadedAt
	}
	return res, nil
}
