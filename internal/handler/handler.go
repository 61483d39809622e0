package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/accrual"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/middleware"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/repository"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/service"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type PlanManager interface {
	ListPlans(ctx context.Context, activeOnly bool) ([]model.RewardPlan, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*model.RewardPlan, error)
	CreatePlan(ctx context.Context, in service.PlanInput) (*model.RewardPlan, error)
	UpdatePlan(ctx context.Context, id uuid.UUID, in service.PlanInput) (*model.RewardPlan, error)
	DeactivatePlan(ctx context.Context, id uuid.UUID) error
}

type SubscriptionManager interface {
	Enroll(ctx context.Context, req service.EnrollRequest) (*model.Subscription, error)
	GetSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error)
	ListSubscriptions(ctx context.Context, filter model.SubscriptionFilter) ([]model.Subscription, error)
	CancelSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error)
	ExpireOverdue(ctx context.Context) (int64, error)
}

type BalanceManager interface {
	GetBalances(ctx context.Context, customerID int64) ([]model.Balance, error)
	GetLedger(ctx context.Context, customerID int64, limit, offset int) ([]model.LedgerEntry, error)
	Adjust(ctx context.Context, req service.AdjustmentRequest) (*model.LedgerEntry, error)
	Reconcile(ctx context.Context, customerID int64) ([]service.Discrepancy, error)
}

type SettingsManager interface {
	List(ctx context.Context) ([]model.Setting, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type DiscountManager interface {
	List(ctx context.Context) ([]model.CategoryDiscount, error)
	Upsert(ctx context.Context, d *model.CategoryDiscount) error
	Delete(ctx context.Context, categoryID string) error
}

type RewardRunner interface {
	Run(ctx context.Context, asOf time.Time) (accrual.RunReport, error)
	LastRun() (accrual.RunReport, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, adminID, action string, targetCustomerID *int64, details any)
	List(ctx context.Context, customerID int64, limit, offset int) ([]model.AdminLog, error)
}

// RewardTrigger runs today's rewards subject to the business calendar.
type RewardTrigger interface {
	Trigger(ctx context.Context) (accrual.RunReport, error)
}

type Deps struct {
	DB            Pinger
	Plans         PlanManager
	Subscriptions SubscriptionManager
	Balances      BalanceManager
	Settings      SettingsManager
	Discounts     DiscountManager
	Rewards       RewardRunner
	Trigger       RewardTrigger
	Audit         AuditRecorder
	Location      *time.Location
	Log           *logrus.Logger
}

type Handler struct {
	db        Pinger
	plans     PlanManager
	subs      SubscriptionManager
	balances  BalanceManager
	settings  SettingsManager
	discounts DiscountManager
	rewards   RewardRunner
	trigger   RewardTrigger
	audit     AuditRecorder
	loc       *time.Location
	log       *logrus.Logger
}

func New(d Deps) *Handler {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		db:        d.DB,
		plans:     d.Plans,
		subs:      d.Subscriptions,
		balances:  d.Balances,
		settings:  d.Settings,
		discounts: d.Discounts,
		rewards:   d.Rewards,
		trigger:   d.Trigger,
		audit:     d.Audit,
		loc:       loc,
		log:       d.Log,
	}
}

func (h *Handler) Health(c *fiber.Ctx) error {
	if h.db != nil {
		if err := h.db.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
				"error":  "database unreachable",
			})
		}
	}
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// record writes an audit entry for the calling admin.
func (h *Handler) record(c *fiber.Ctx, action string, target *int64, details any) {
	if h.audit == nil {
		return
	}
	h.audit.Record(c.Context(), middleware.GetAdminID(c), action, target, details)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrPlanNotFound),
		errors.Is(err, repository.ErrSubscriptionNotFound),
		errors.Is(err, repository.ErrBalanceNotFound),
		errors.Is(err, repository.ErrSettingNotFound),
		errors.Is(err, repository.ErrCategoryDiscountNotFound),
		errors.Is(err, service.ErrRunNotAvailable):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrInvalidPlan),
		errors.Is(err, service.ErrInvalidEnrollment),
		errors.Is(err, service.ErrInvalidAdjustment),
		errors.Is(err, service.ErrInvalidSetting),
		errors.Is(err, service.ErrInvalidDiscount):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrSubscriptionActive),
		errors.Is(err, service.ErrPlanInactive),
		errors.Is(err, repository.ErrSubscriptionNotActive),
		errors.Is(err, service.ErrRewardsPaused),
		errors.Is(err, service.ErrRunInProgress):
		return fiber.StatusConflict
	case errors.Is(err, repository.ErrInsufficientBalance):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// fail writes the error envelope. Unexpected errors are logged and hidden
// from the client.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		h.log.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("Request failed")
		msg = "internal server error"
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func paramCustomerID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("customer_id"), 10, 64)
	return id, err == nil && id > 0
}
