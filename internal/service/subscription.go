package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

var (
	ErrSubscriptionActive = errors.New("customer already has an active subscription to this plan")
	ErrPlanInactive       = errors.New("plan is not active")
	ErrInvalidEnrollment  = errors.New("invalid enrollment")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type subscriptionRepo interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*model.RewardPlan, error)
	GetSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error)
	ListSubscriptions(ctx context.Context, filter model.SubscriptionFilter) ([]model.Subscription, error)
	CreateSubscription(ctx context.Context, sub *model.Subscription) error
	CancelSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	HasActiveSubscription(ctx context.Context, customerID int64, planID uuid.UUID) (bool, error)
}

type SubscriptionService struct {
	repo subscriptionRepo
	log  *logrus.Logger
	now  func() time.Time
}

func NewSubscriptionService(repo subscriptionRepo, log *logrus.Logger) *SubscriptionService {
	return &SubscriptionService{repo: repo, log: log, now: time.Now}
}

type EnrollRequest struct {
	CustomerID int64      `json:"customer_id"`
	PlanID     uuid.UUID  `json:"plan_id"`
	StartsAt   *time.Time `json:"starts_at"`
}

// Enroll subscribes a customer to a plan, snapshotting the plan's terms. The
// window runs for the plan's duration from StartsAt, or from now.
func (s *SubscriptionService) Enroll(ctx context.Context, req EnrollRequest) (*model.Subscription, error) {
	if req.CustomerID <= 0 {
		return nil, fmt.Errorf("%w: customer_id is required", ErrInvalidEnrollment)
	}

	plan, err := s.repo.GetPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, ErrPlanInactive
	}

	exists, err := s.repo.HasActiveSubscription(ctx, req.CustomerID, plan.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrSubscriptionActive
	}

	startsAt := s.now()
	if req.StartsAt != nil {
		startsAt = *req.StartsAt
	}

	sub := &model.Subscription{
		CustomerID:     req.CustomerID,
		PlanID:         plan.ID,
		PlanTerms:      plan.Terms(),
		CurrentAccrued: decimal.Zero,
		Status:         model.SubscriptionStatusActive,
		StartsAt:       startsAt,
		EndsAt:         startsAt.AddDate(0, 0, plan.DurationDays),
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"subscription_id": sub.ID,
		"customer_id":     sub.CustomerID,
		"plan_id":         plan.ID,
		"ends_at":         sub.EndsAt.Format(time.RFC3339),
	}).Info("Customer enrolled in reward plan")

	return sub, nil
}

func (s *SubscriptionService) GetSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	return s.repo.GetSubscription(ctx, id)
}

func (s *SubscriptionService) ListSubscriptions(ctx context.Context, filter model.SubscriptionFilter) ([]model.Subscription, error) {
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.ListSubscriptions(ctx, filter)
}

func (s *SubscriptionService) CancelSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	sub, err := s.repo.CancelSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.WithField("subscription_id", id).Info("Subscription cancelled")
	return sub, nil
}

// ExpireOverdue closes active subscriptions whose window ended.
func (s *SubscriptionService) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	if n > 0 {
		s.log.WithField("count", n).Info("Expired overdue subscriptions")
	}
	return n, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
