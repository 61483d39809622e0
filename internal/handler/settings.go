package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

type SetSettingRequest struct {
	Value string `json:"value"`
}

func (h *Handler) ListSettings(c *fiber.Ctx) error {
	settings, err := h.settings.List(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"settings": settings,
	})
}

func (h *Handler) GetSetting(c *fiber.Ctx) error {
	key := c.Params("key")
	value, err := h.settings.Get(c.Context(), key)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"key":   key,
		"value": value,
	})
}

func (h *Handler) SetSetting(c *fiber.Ctx) error {
	var req SetSettingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	key := c.Params("key")
	if err := h.settings.Set(c.Context(), key, req.Value); err != nil {
		return h.fail(c, err)
	}
	h.record(c, model.AdminActionSetSetting, nil, fiber.Map{"key": key, "value": req.Value})
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handler) DeleteSetting(c *fiber.Ctx) error {
	key := c.Params("key")
	if err := h.settings.Delete(c.Context(), key); err != nil {
		return h.fail(c, err)
	}
	h.record(c, model.AdminActionDeleteSetting, nil, fiber.Map{"key": key})
	return c.JSON(fiber.Map{"success": true})
}
