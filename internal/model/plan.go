package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RewardPlan is the template a subscription copies its terms from at enrollment.
type RewardPlan struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	Description     string          `json:"description" db:"description"`
	RewardPerPeriod decimal.Decimal `json:"reward_per_period" db:"reward_per_period"`
	TargetAmount    decimal.Decimal `json:"target_amount" db:"target_amount"`
	PurseKind       PurseKind       `json:"purse_kind" db:"purse_kind"`
	DurationDays    int             `json:"duration_days" db:"duration_days"`
	IsActive        bool            `json:"is_active" db:"is_active"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// Terms returns the accrual terms a new subscription should snapshot.
func (p *RewardPlan) Terms() PlanTerms {
	return PlanTerms{
		RewardPerPeriod: p.RewardPerPeriod,
		TargetAmount:    p.TargetAmount,
		PurseKind:       p.PurseKind,
	}
}
