package controller

import (
	"fmt"

	"clinic-chat-be/internal/apperror"
	"clinic-chat-be/internal/dto"
	"clinic-chat-be/internal/pkg/serverutils"
	"clinic-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	OpenSession(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	Append(ctx *fiber.Ctx) error
	Escalate(ctx *fiber.Ctx) error
	Close(ctx *fiber.Ctx) error
}

type chatController struct {
	messageService    service.IMessageService
	escalationService service.IEscalationService
}

func NewChatController(messageService service.IMessageService, escalationService service.IEscalationService) IChatController {
	return &chatController{
		messageService:    messageService,
		escalationService: escalationService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/chat/v1")
	h.Use(auth)
	h.Post("sessions", c.OpenSession)
	h.Get("sessions/:id", c.GetSession)
	h.Get("sessions/:id/messages", c.GetHistory)
	h.Post("sessions/:id/messages", c.Append)
	h.Post("sessions/:id/escalate", c.Escalate)
	h.Post("sessions/:id/close", c.Close)
}

func idParam(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", ctx.Params("id"), apperror.ErrInvalidInput)
	}
	return id, nil
}

func (c *chatController) OpenSession(ctx *fiber.Ctx) error {
	var req dto.OpenSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fmt.Errorf("%s: %w", err.Error(), apperror.ErrInvalidInput)
		}
	}

	res, err := c.messageService.OpenSession(ctx.UserContext(), serverutils.CallerFrom(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success open chat session", res))
}

func (c *chatController) GetSession(ctx *fiber.Ctx) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.messageService.GetSession(ctx.UserContext(), serverutils.CallerFrom(ctx), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat session", res))
}

func (c *chatController) GetHistory(ctx *fiber.Ctx) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}

	afterSeq := ctx.QueryInt("after_seq", 0)
	res, err := c.messageService.GetHistory(ctx.UserContext(), serverutils.CallerFrom(ctx), id, int64(afterSeq))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat messages", res))
}

func (c *chatController) Append(ctx *fiber.Ctx) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}

	var req dto.AppendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), apperror.ErrInvalidInput)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.messageService.Append(ctx.UserContext(), serverutils.CallerFrom(ctx), id, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success send message", res))
}

func (c *chatController) Escalate(ctx *fiber.Ctx) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}

	var req dto.EscalateRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fmt.Errorf("%s: %w", err.Error(), apperror.ErrInvalidInput)
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.escalationService.Escalate(ctx.UserContext(), serverutils.CallerFrom(ctx), id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success escalate chat session", res))
}

func (c *chatController) Close(ctx *fiber.Ctx) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.escalationService.CloseSession(ctx.UserContext(), serverutils.CallerFrom(ctx), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success close chat session", res))
}
