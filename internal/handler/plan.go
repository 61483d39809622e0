package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/service"
)

func (h *Handler) ListPlans(c *fiber.Ctx) error {
	plans, err := h.plans.ListPlans(c.Context(), c.QueryBool("active", false))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"plans": plans,
	})
}

func (h *Handler) GetPlan(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "plan_id")
	if !ok {
		return badRequest(c, "invalid plan_id")
	}

	plan, err := h.plans.GetPlan(c.Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(plan)
}

func (h *Handler) CreatePlan(c *fiber.Ctx) error {
	var req service.PlanInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	plan, err := h.plans.CreatePlan(c.Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	h.record(c, model.AdminActionCreatePlan, nil, fiber.Map{"plan_id": plan.ID, "name": plan.Name})
	return c.Status(fiber.StatusCreated).JSON(plan)
}

func (h *Handler) UpdatePlan(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "plan_id")
	if !ok {
		return badRequest(c, "invalid plan_id")
	}

	var req service.PlanInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	plan, err := h.plans.UpdatePlan(c.Context(), id, req)
	if err != nil {
		return h.fail(c, err)
	}
	h.record(c, model.AdminActionUpdatePlan, nil, req)
	return c.JSON(plan)
}

// DeactivatePlan hides a plan from new enrollments. Subscriptions already on
// it keep accruing.
func (h *Handler) DeactivatePlan(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "plan_id")
	if !ok {
		return badRequest(c, "invalid plan_id")
	}

	if err := h.plans.DeactivatePlan(c.Context(), id); err != nil {
		return h.fail(c, err)
	}
	h.record(c, model.AdminActionDeactivatePlan, nil, fiber.Map{"plan_id": id})
	return c.JSON(fiber.Map{"success": true})
}
