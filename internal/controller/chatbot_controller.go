package controller

import (
	"rule-chatbot-be/internal/dto"
	"rule-chatbot-be/internal/mapper"
	"rule-chatbot-be/internal/pkg/serverutils"
	"rule-chatbot-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	GetResponse(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type chatbotController struct {
	service service.IChatbotService
	stats   service.IStatsService
	mapper  *mapper.ChatMapper
}

func NewChatbotController(service service.IChatbotService, stats service.IStatsService) IChatbotController {
	return &chatbotController{
		service: service,
		stats:   stats,
		mapper:  mapper.NewChatMapper(),
	}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	r.Post("/get_response", c.GetResponse)
	r.Get("/health", c.Health)
	r.Get("/stats", c.Stats)
}

// GetResponse answers one message. The user is identified by the client
// address (PROXY_HEADER when behind a reverse proxy).
func (c *chatbotController) GetResponse(ctx *fiber.Ctx) error {
	var req dto.GetResponseRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	resp, err := c.service.GetResponse(ctx.UserContext(), ctx.IP(), req.Question)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(c.mapper.ResponseToWire(resp))
}

func (c *chatbotController) Health(ctx *fiber.Ctx) error {
	res, err := c.service.Health(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(serverutils.ErrorResponse(503, err.Error()))
	}
	return ctx.JSON(res)
}

func (c *chatbotController) Stats(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 0)
	return ctx.JSON(serverutils.SuccessResponse("Interaction stats", c.stats.GetStats(limit)))
}
