package handler

import (
	"errors"

	"docquery/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// respondError maps the error taxonomy onto HTTP statuses in one place so
// handlers stay thin.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	status := fiber.StatusInternalServerError
	switch appErr.Kind {
	case apperr.KindValidation:
		status = fiber.StatusBadRequest
	case apperr.KindNotFound:
		status = fiber.StatusNotFound
	case apperr.KindForbidden:
		status = fiber.StatusForbidden
	case apperr.KindConflict:
		status = fiber.StatusConflict
	case apperr.KindUpstream:
		status = fiber.StatusBadGateway
	}

	return c.Status(status).JSON(fiber.Map{"error": appErr.Message})
}
