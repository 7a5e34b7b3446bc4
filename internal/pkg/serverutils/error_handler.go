package serverutils

import (
	"errors"

	"clinic-chat-be/internal/apperror"
	"clinic-chat-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, apperror.ErrSessionClosed),
		errors.Is(err, apperror.ErrInvalidTransition),
		errors.Is(err, apperror.ErrAlreadyAssigned):
		return fiber.StatusConflict
	case errors.Is(err, apperror.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperror.ErrUpstreamUnavailable):
		return fiber.StatusBadGateway
	case errors.Is(err, apperror.ErrInvalidInput):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status := StatusFor(err)
		details := map[string]interface{}{
			"method": ctx.Method(),
			"path":   ctx.Path(),
			"status": status,
			"error":  err.Error(),
		}

		message := err.Error()
		switch {
		case status >= fiber.StatusInternalServerError && status != fiber.StatusBadGateway:
			log.Error("HTTP", "Request failed", details)
			message = "Internal server error"
		case errors.Is(err, apperror.ErrAlreadyAssigned):
			log.Info("HTTP", "Claim lost", details)
		case apperror.IsExpected(err):
			log.Debug("HTTP", "Request rejected", details)
		default:
			log.Warn("HTTP", "Request rejected", details)
		}

		return ctx.Status(status).JSON(ErrorResponse(status, message))
	}
}
