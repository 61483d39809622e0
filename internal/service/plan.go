package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

var ErrInvalidPlan = errors.New("invalid plan")

type planRepo interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*model.RewardPlan, error)
	ListPlans(ctx context.Context, activeOnly bool) ([]model.RewardPlan, error)
	CreatePlan(ctx context.Context, plan *model.RewardPlan) error
	UpdatePlan(ctx context.Context, plan *model.RewardPlan) error
	DeactivatePlan(ctx context.Context, id uuid.UUID) error
}

type PlanService struct {
	repo planRepo
}

func NewPlanService(repo planRepo) *PlanService {
	return &PlanService{repo: repo}
}

type PlanInput struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	RewardPerPeriod decimal.Decimal `json:"reward_per_period"`
	TargetAmount    decimal.Decimal `json:"target_amount"`
	PurseKind       model.PurseKind `json:"purse_kind"`
	DurationDays    int             `json:"duration_days"`
	IsActive        *bool           `json:"is_active"`
}

func (in PlanInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidPlan)
	case !in.RewardPerPeriod.IsPositive():
		return fmt.Errorf("%w: reward_per_period must be positive", ErrInvalidPlan)
	case !wholeCents(in.RewardPerPeriod) || !wholeCents(in.TargetAmount):
		return fmt.Errorf("%w: amounts have more than %d decimal places", ErrInvalidPlan, moneyScale)
	case in.TargetAmount.LessThan(in.RewardPerPeriod):
		return fmt.Errorf("%w: target_amount must be at least reward_per_period", ErrInvalidPlan)
	case in.DurationDays <= 0:
		return fmt.Errorf("%w: duration_days must be positive", ErrInvalidPlan)
	case in.PurseKind != "" && !in.PurseKind.Valid():
		return fmt.Errorf("%w: unknown purse_kind %q", ErrInvalidPlan, in.PurseKind)
	}
	return nil
}

func (in PlanInput) apply(plan *model.RewardPlan) {
	plan.Name = strings.TrimSpace(in.Name)
	plan.Description = in.Description
	plan.RewardPerPeriod = in.RewardPerPeriod
	plan.TargetAmount = in.TargetAmount
	plan.DurationDays = in.DurationDays
	plan.PurseKind = in.PurseKind
	if plan.PurseKind == "" {
		plan.PurseKind = model.PurseKindShoppingCredit
	}
	if in.IsActive != nil {
		plan.IsActive = *in.IsActive
	}
}

func (s *PlanService) GetPlan(ctx context.Context, id uuid.UUID) (*model.RewardPlan, error) {
	return s.repo.GetPlan(ctx, id)
}

func (s *PlanService) ListPlans(ctx context.Context, activeOnly bool) ([]model.RewardPlan, error) {
	return s.repo.ListPlans(ctx, activeOnly)
}

func (s *PlanService) CreatePlan(ctx context.Context, in PlanInput) (*model.RewardPlan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	plan := &model.RewardPlan{IsActive: true}
	in.apply(plan)
	if err := s.repo.CreatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}
	return plan, nil
}

// UpdatePlan replaces a plan's terms. Subscriptions already enrolled keep the
// terms they were created with.
func (s *PlanService) UpdatePlan(ctx context.Context, id uuid.UUID, in PlanInput) (*model.RewardPlan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	plan, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(plan)
	if err := s.repo.UpdatePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *PlanService) DeactivatePlan(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeactivatePlan(ctx, id)
}
