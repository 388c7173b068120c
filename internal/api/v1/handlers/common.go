package handlers

import (
	"errors"

	"trackcrm/internal/authz"
	"trackcrm/internal/config"

	"github.com/gofiber/fiber/v2"
)

// storeErrorMessage hides storage-engine detail from clients in production;
// development keeps the underlying error for debugging.
func storeErrorMessage(msg string, err error) string {
	if config.Cfg.IsProduction() {
		return msg
	}
	return msg + ": " + err.Error()
}

// respondAuthzError maps a pipeline decision to its terminal HTTP outcome.
func respondAuthzError(c *fiber.Ctx, err error) error {
	if errors.Is(err, authz.ErrUnauthenticated) {
		return c.Status(401).JSON(fiber.Map{
			"message": "Unauthenticated",
			"success": false,
			"status":  401,
		})
	}
	return c.Status(403).JSON(fiber.Map{
		"message": "Forbidden",
		"success": false,
		"status":  403,
	})
}
