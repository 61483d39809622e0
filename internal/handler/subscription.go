package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/service"
)

func (h *Handler) ListSubscriptions(c *fiber.Ctx) error {
	filter := model.SubscriptionFilter{
		CustomerID: int64(c.QueryInt("customer_id", 0)),
		Status:     model.SubscriptionStatus(c.Query("status")),
		Limit:      c.QueryInt("limit", 20),
		Offset:     c.QueryInt("offset", 0),
	}
	switch filter.Status {
	case "", model.SubscriptionStatusActive, model.SubscriptionStatusExpired, model.SubscriptionStatusCancelled:
	default:
		return badRequest(c, "invalid status")
	}

	subs, err := h.subs.ListSubscriptions(c.Context(), filter)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"subscriptions": subs,
	})
}

func (h *Handler) GetSubscription(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "subscription_id")
	if !ok {
		return badRequest(c, "invalid subscription_id")
	}

	sub, err := h.subs.GetSubscription(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(sub)
}

func (h *Handler) EnrollSubscription(c *fiber.Ctx) error {
	var req service.EnrollRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	sub, err := h.subs.Enroll(c.Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	h.record(c, model.AdminActionEnroll, &sub.CustomerID, fiber.Map{"subscription_id": sub.ID, "plan_id": sub.PlanID})
	return c.Status(fiber.StatusCreated).JSON(sub)
}

func (h *Handler) CancelSubscription(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "subscription_id")
	if !ok {
		return badRequest(c, "invalid subscription_id")
	}

	sub, err := h.subs.CancelSubscription(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	h.record(c, model.AdminActionCancelSub, &sub.CustomerID, fiber.Map{"subscription_id": sub.ID})
	return c.JSON(sub)
}
