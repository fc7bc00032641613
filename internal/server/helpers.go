package server

import (
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

const localIdentity = "identity"

// identityFrom returns the caller resolved by AuthRequired.
func identityFrom(c *fiber.Ctx) (models.Identity, bool) {
	identity, ok := c.Locals(localIdentity).(*models.Identity)
	if !ok || identity == nil {
		return models.Identity{}, false
	}
	return *identity, true
}

func unauthenticated(c *fiber.Ctx) error {
	return respondError(c, models.NewUnauthorizedError("missing or invalid authorization header"))
}

// respondError writes err with the status of its kind. Internal causes are
// logged here and never reach the client.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}

// parseBody decodes the JSON request body into dst. An empty body reads as {}.
func parseBody(c *fiber.Ctx, dst interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		return models.NewValidationError("invalid request body")
	}
	return nil
}
