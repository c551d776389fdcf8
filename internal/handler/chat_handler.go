package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rule-chatbot-be/internal/dto"
	"rule-chatbot-be/internal/mapper"
	"rule-chatbot-be/internal/pkg/logger"
	"rule-chatbot-be/internal/pkg/serverutils"
	"rule-chatbot-be/internal/service"
	internalWS "rule-chatbot-be/internal/websocket"
	"rule-chatbot-be/pkg/knowledge"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	localUserKey  = "user_key"
	answerTimeout = 30 * time.Second

	msgKnowledgeReloaded = "La base de connaissances a été mise à jour (%d règles, %d faits)."
)

// ChatHandler serves the chat over a websocket. Every frame is answered the
// same way POST /api/get_response would answer it.
type ChatHandler struct {
	service service.IChatbotService
	hub     *internalWS.Hub
	mapper  *mapper.ChatMapper
	logger  logger.ILogger
}

func NewChatHandler(service service.IChatbotService, hub *internalWS.Hub, log logger.ILogger) *ChatHandler {
	return &ChatHandler{
		service: service,
		hub:     hub,
		mapper:  mapper.NewChatMapper(),
		logger:  log,
	}
}

// RegisterRoutes registers the websocket route.
func (h *ChatHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.upgrade, websocket.New(h.serve))
}

// upgrade rejects plain HTTP and keeps the client address for the session
// key, which is not reachable from the websocket.Conn.
func (h *ChatHandler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(localUserKey, c.IP())
	return c.Next()
}

func (h *ChatHandler) serve(c *websocket.Conn) {
	userKey, _ := c.Locals(localUserKey).(string)
	h.logger.Info("ChatHandler", "Starting WebSocket session", map[string]interface{}{"user_key": userKey})
	internalWS.ServeWs(h.hub, c, userKey, h.answer)
	h.logger.Info("ChatHandler", "WebSocket session ended", map[string]interface{}{"user_key": userKey})
}

func (h *ChatHandler) answer(client *internalWS.Client, frame []byte) []byte {
	var req dto.WsQuestion
	if err := json.Unmarshal(frame, &req); err != nil {
		return h.encode(serverutils.ErrorResponse(400, "Invalid message"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return h.encode(serverutils.ErrorResponse(400, err.Error()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), answerTimeout)
	defer cancel()

	resp, err := h.service.GetResponse(ctx, client.UserKey, req.Question)
	if err != nil {
		return h.encode(serverutils.ErrorResponse(500, err.Error()))
	}
	return h.encode(h.mapper.ResponseToWire(resp))
}

// NotifyReload tells every connected client that the knowledge base changed.
func (h *ChatHandler) NotifyReload(base *knowledge.Base) {
	rules, facts := base.Stats()
	h.hub.Broadcast(dto.SystemMessage{
		Type:    "system",
		Message: fmt.Sprintf(msgKnowledgeReloaded, rules, facts),
	})
}

func (h *ChatHandler) encode(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("ChatHandler", "Failed to encode reply", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return data
}
