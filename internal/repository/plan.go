package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

var ErrPlanNotFound = errors.New("plan not found")

func (r *Repository) GetPlan(ctx context.Context, id uuid.UUID) (*model.RewardPlan, error) {
	var plan model.RewardPlan
	err := r.db.GetContext(ctx, &plan, "SELECT * FROM reward_plans WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *Repository) ListPlans(ctx context.Context, activeOnly bool) ([]model.RewardPlan, error) {
	plans := []model.RewardPlan{}
	query := "SELECT * FROM reward_plans ORDER BY created_at ASC"
	if activeOnly {
		query = "SELECT * FROM reward_plans WHERE is_active = true ORDER BY created_at ASC"
	}
	err := r.db.SelectContext(ctx, &plans, query)
	return plans, err
}

func (r *Repository) CreatePlan(ctx context.Context, plan *model.RewardPlan) error {
	query := `
		INSERT INTO reward_plans (name, description, reward_per_period, target_amount, purse_kind, duration_days, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		plan.Name,
		plan.Description,
		plan.RewardPerPeriod,
		plan.TargetAmount,
		plan.PurseKind,
		plan.DurationDays,
		plan.IsActive,
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)
}

// UpdatePlan changes a plan's terms. Existing subscriptions keep the terms
// they were enrolled with.
func (r *Repository) UpdatePlan(ctx context.Context, plan *model.RewardPlan) error {
	query := `
		UPDATE reward_plans SET
			name = $2,
			description = $3,
			reward_per_period = $4,
			target_amount = $5,
			purse_kind = $6,
			duration_days = $7,
			is_active = $8,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		plan.ID,
		plan.Name,
		plan.Description,
		plan.RewardPerPeriod,
		plan.TargetAmount,
		plan.PurseKind,
		plan.DurationDays,
		plan.IsActive,
	).Scan(&plan.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPlanNotFound
	}
	return err
}

func (r *Repository) DeactivatePlan(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE reward_plans SET is_active = false, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPlanNotFound
	}
	return nil
}
