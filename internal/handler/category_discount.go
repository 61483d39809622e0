package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

func (h *Handler) ListCategoryDiscounts(c *fiber.Ctx) error {
	discounts, err := h.discounts.List(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"discounts": discounts,
	})
}

func (h *Handler) UpsertCategoryDiscount(c *fiber.Ctx) error {
	var d model.CategoryDiscount
	if err := c.BodyParser(&d); err != nil {
		return badRequest(c, "invalid request body")
	}
	d.CategoryID = c.Params("category_id")

	if err := h.discounts.Upsert(c.Context(), &d); err != nil {
		return h.fail(c, err)
	}
	h.record(c, model.AdminActionUpsertDiscount, nil, d)
	return c.JSON(d)
}

func (h *Handler) DeleteCategoryDiscount(c *fiber.Ctx) error {
	categoryID := c.Params("category_id")
	if err := h.discounts.Delete(c.Context(), categoryID); err != nil {
		return h.fail(c, err)
	}
	h.record(c, model.AdminActionDeleteDiscount, nil, fiber.Map{"category_id": categoryID})
	return c.JSON(fiber.Map{"success": true})
}
