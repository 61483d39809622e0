package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/scheduler"
)

type RunRewardsRequest struct {
	AsOf string `json:"as_of"`
}

// parseAsOf accepts RFC3339 or a bare date, which is read as midnight in the
// reward timezone. Empty means now. The result is always in the reward
// timezone so the run is keyed by the local calendar day.
func (h *Handler) parseAsOf(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().In(h.loc), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(h.loc), nil
	}
	return time.ParseInLocation(time.DateOnly, raw, h.loc)
}

// RunRewards triggers a reward run by hand. The business calendar is not
// consulted.
func (h *Handler) RunRewards(c *fiber.Ctx) error {
	var req RunRewardsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	if req.AsOf == "" {
		req.AsOf = c.Query("as_of")
	}

	asOf, err := h.parseAsOf(req.AsOf)
	if err != nil {
		return badRequest(c, "as_of must be RFC3339 or YYYY-MM-DD")
	}

	report, err := h.rewards.Run(c.Context(), asOf)
	if err != nil {
		return h.fail(c, err)
	}
	h.record(c, model.AdminActionRunRewards, nil, fiber.Map{
		"as_of":     asOf.Format(time.RFC3339),
		"processed": report.Processed,
		"failed":    len(report.Failures),
	})
	return c.JSON(report)
}

func (h *Handler) LastRewardRun(c *fiber.Ctx) error {
	report, err := h.rewards.LastRun()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(report)
}

// CronRewards is the entry point for an external scheduler. Non-business
// days are acknowledged without running.
func (h *Handler) CronRewards(c *fiber.Ctx) error {
	report, err := h.trigger.Trigger(c.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrNotBusinessDay) {
			return c.JSON(fiber.Map{
				"status": "skipped",
				"as_of":  report.AsOf.Format(time.DateOnly),
			})
		}
		return h.fail(c, err)
	}
	return c.JSON(report)
}

func (h *Handler) CronExpire(c *fiber.Ctx) error {
	n, err := h.subs.ExpireOverdue(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"status":  "ok",
		"expired": n,
	})
}
