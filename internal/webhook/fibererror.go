package webhook

import (
	"errors"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/Abraxas-365/craftable/logx"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders errx errors as structured JSON with their
// registered HTTP status. Anything else becomes a generic 500.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		logx.Error("error handling request %s %s: %v", c.Method(), c.Path(), err)

		var xerr *errx.Error
		if errors.As(err, &xerr) {
			errorResponse := fiber.Map{
				"code":    xerr.Code,
				"type":    xerr.Type,
				"message": xerr.Message,
			}
			if len(xerr.Details) > 0 {
				errorResponse["details"] = xerr.Details
			}

			status := xerr.HTTPStatus
			if status == 0 {
				status = fiber.StatusInternalServerError
			}
			return c.Status(status).JSON(fiber.Map{"error": errorResponse})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    "FIBER_ERROR",
					"type":    errx.TypeInternal,
					"message": fiberErr.Message,
				},
			})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "INTERNAL_ERROR",
				"type":    errx.TypeInternal,
				"message": "Internal server error",
			},
		})
	}
}
