package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// PlanTerms is the part of a reward plan frozen into a subscription.
type PlanTerms struct {
	RewardPerPeriod decimal.Decimal `json:"reward_per_period" db:"reward_per_period"`
	TargetAmount    decimal.Decimal `json:"target_amount" db:"target_amount"`
	PurseKind       PurseKind       `json:"purse_kind" db:"purse_kind"`
}

type Subscription struct {
	ID         uuid.UUID `json:"id" db:"id"`
	CustomerID int64     `json:"customer_id" db:"customer_id"`
	PlanID     uuid.UUID `json:"plan_id" db:"plan_id"`
	PlanTerms
	CurrentAccrued decimal.Decimal    `json:"current_accrued" db:"current_accrued"`
	Status         SubscriptionStatus `json:"status" db:"status"`
	StartsAt       time.Time          `json:"starts_at" db:"starts_at"`
	EndsAt         time.Time          `json:"ends_at" db:"ends_at"`
	Version        int64              `json:"version" db:"version"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" db:"updated_at"`
}

// Remaining returns how much is still owed before the target is reached.
func (s *Subscription) Remaining() decimal.Decimal {
	remaining := s.TargetAmount.Sub(s.CurrentAccrued)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

func (s *Subscription) IsFullyAccrued() bool {
	return s.CurrentAccrued.GreaterThanOrEqual(s.TargetAmount)
}

// InWindow reports whether t falls inside [StartsAt, EndsAt].
func (s *Subscription) InWindow(t time.Time) bool {
	return !t.Before(s.StartsAt) && !t.After(s.EndsAt)
}

// SubscriptionFilter narrows admin listings. Zero values mean "any".
type SubscriptionFilter struct {
	CustomerID int64
	Status     SubscriptionStatus
	Limit      int
	Offset     int
}
