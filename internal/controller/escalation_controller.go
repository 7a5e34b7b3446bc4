package controller

import (
	"fmt"

	"clinic-chat-be/internal/apperror"
	"clinic-chat-be/internal/dto"
	"clinic-chat-be/internal/pkg/serverutils"
	"clinic-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IEscalationController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	List(ctx *fiber.Ctx) error
	Count(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Assign(ctx *fiber.Ctx) error
	Resolve(ctx *fiber.Ctx) error
}

type escalationController struct {
	escalationService service.IEscalationService
}

func NewEscalationController(escalationService service.IEscalationService) IEscalationController {
	return &escalationController{
		escalationService: escalationService,
	}
}

func (c *escalationController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/escalation/v1")
	h.Use(auth)
	h.Get("", c.List)
	h.Get("count", c.Count)
	h.Get(":id", c.Show)
	h.Post(":id/assign", c.Assign)
	h.Post(":id/resolve", c.Resolve)
}

func (c *escalationController) List(ctx *fiber.Ctx) error {
	var req dto.ListEscalationsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), apperror.ErrInvalidInput)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.escalationService.List(ctx.UserContext(), serverutils.CallerFrom(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get escalations", res))
}

func (c *escalationController) Count(ctx *fiber.Ctx) error {
	res, err := c.escalationService.CountOutstanding(ctx.UserContext(), serverutils.CallerFrom(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success count escalations", res))
}

func (c *escalationController) Show(ctx *fiber.Ctx) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.escalationService.Get(ctx.UserContext(), serverutils.CallerFrom(ctx), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get escalation", res))
}

func (c *escalationController) Assign(ctx *fiber.Ctx) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.escalationService.AssignToSelf(ctx.UserContext(), serverutils.CallerFrom(ctx), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success assign escalation", res))
}

func (c *escalationController) Resolve(ctx *fiber.Ctx) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.escalationService.Resolve(ctx.UserContext(), serverutils.CallerFrom(ctx), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success resolve escalation", res))
}
