package handler

import (
	"github.com/gofiber/fiber/v2"
)

// ListAdminLogs returns the audit trail, optionally for one customer.
func (h *Handler) ListAdminLogs(c *fiber.Ctx) error {
	if h.audit == nil {
		return c.JSON(fiber.Map{"logs": []any{}})
	}

	logs, err := h.audit.List(c.Context(),
		int64(c.QueryInt("customer_id", 0)),
		c.QueryInt("limit", 50),
		c.QueryInt("offset", 0),
	)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"logs": logs,
	})
}
