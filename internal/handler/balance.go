package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/middleware"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/service"
)

func (h *Handler) GetBalances(c *fiber.Ctx) error {
	customerID, ok := paramCustomerID(c)
	if !ok {
		return badRequest(c, "invalid customer_id")
	}

	balances, err := h.balances.GetBalances(c.Context(), customerID)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"customer_id": customerID,
		"balances":    balances,
	})
}

// GetLedger returns ledger history, newest first
func (h *Handler) GetLedger(c *fiber.Ctx) error {
	customerID, ok := paramCustomerID(c)
	if !ok {
		return badRequest(c, "invalid customer_id")
	}

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	entries, err := h.balances.GetLedger(c.Context(), customerID, limit, offset)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"entries": entries,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *Handler) AdjustBalance(c *fiber.Ctx) error {
	customerID, ok := paramCustomerID(c)
	if !ok {
		return badRequest(c, "invalid customer_id")
	}

	var req service.AdjustmentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.CustomerID = customerID
	req.AdminID = middleware.GetAdminID(c)

	entry, err := h.balances.Adjust(c.Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	h.record(c, model.AdminActionAdjustBalance, &customerID, fiber.Map{
		"entry_id":  entry.ID,
		"kind":      req.Kind,
		"direction": req.Direction,
		"amount":    req.Amount,
		"note":      req.Note,
	})
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// Reconcile lists purses whose amount disagrees with their ledger.
func (h *Handler) Reconcile(c *fiber.Ctx) error {
	customerID, ok := paramCustomerID(c)
	if !ok {
		return badRequest(c, "invalid customer_id")
	}

	discrepancies, err := h.balances.Reconcile(c.Context(), customerID)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"consistent":    len(discrepancies) == 0,
		"discrepancies": discrepancies,
	})
}
