package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

const CronSecretHeader = "X-Cron-Secret"

// CronSecret guards endpoints called by an external scheduler. An empty
// secret disables them.
func CronSecret(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "cron trigger is not configured",
			})
		}

		got := c.Get(CronSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}
		return c.Next()
	}
}
