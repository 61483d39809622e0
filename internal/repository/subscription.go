package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

var (
	ErrSubscriptionNotFound  = errors.New("subscription not found")
	ErrSubscriptionNotActive = errors.New("subscription is not active")
)

func (r *Repository) GetSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.GetContext(ctx, &sub, "SELECT * FROM subscriptions WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// ListActive returns the reward candidates for asOf.
func (r *Repository) ListActive(ctx context.Context, asOf time.Time) ([]model.Subscription, error) {
	var subs []model.Subscription
	query := `
		SELECT * FROM subscriptions
		WHERE status = 'active'
			AND starts_at <= $1
			AND ends_at >= $1
			AND current_accrued < target_amount
		ORDER BY created_at ASC`
	err := r.db.SelectContext(ctx, &subs, query, asOf)
	return subs, err
}

func (r *Repository) ListSubscriptions(ctx context.Context, filter model.SubscriptionFilter) ([]model.Subscription, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.CustomerID != 0 {
		args = append(args, filter.CustomerID)
		where = append(where, "customer_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}

	query := "SELECT * FROM subscriptions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += " ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))

	subs := []model.Subscription{}
	err := r.db.SelectContext(ctx, &subs, query, args...)
	return subs, err
}

func (r *Repository) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			customer_id, plan_id, reward_per_period, target_amount, purse_kind,
			current_accrued, status, starts_at, ends_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, version, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		sub.CustomerID,
		sub.PlanID,
		sub.RewardPerPeriod,
		sub.TargetAmount,
		sub.PurseKind,
		sub.CurrentAccrued,
		sub.Status,
		sub.StartsAt,
		sub.EndsAt,
	).Scan(&sub.ID, &sub.Version, &sub.CreatedAt, &sub.UpdatedAt)
}

// CancelSubscription moves an active subscription to cancelled. The version
// bump makes any in-flight reward credit for it fail its optimistic check.
func (r *Repository) CancelSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.GetContext(ctx, &sub, `
		UPDATE subscriptions SET
			status = 'cancelled',
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING *`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := r.GetSubscription(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrSubscriptionNotActive
		}
		return nil, err
	}
	return &sub, nil
}

// ExpireOverdue marks active subscriptions whose window closed before now.
func (r *Repository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET
			status = 'expired',
			version = version + 1,
			updated_at = NOW()
		WHERE status = 'active' AND ends_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository) HasActiveSubscription(ctx context.Context, customerID int64, planID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE customer_id = $1 AND plan_id = $2 AND status = 'active'
		)`, customerID, planID)
	return exists, err
}
