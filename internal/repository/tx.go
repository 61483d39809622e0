package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/accrual"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

// WithinTx runs fn inside a database transaction. The transaction commits
// only if fn returns nil.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx accrual.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// txStore implements accrual.Tx on top of an open transaction.
type txStore struct {
	tx *sqlx.Tx
}

func (s *txStore) LockSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription
	err := s.tx.GetContext(ctx, &sub, "SELECT * FROM subscriptions WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (s *txStore) LedgerKeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.tx.GetContext(ctx, &exists,
		"SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE idempotency_key = $1)", key)
	return exists, err
}

func (s *txStore) GetOrCreateBalance(ctx context.Context, customerID int64, kind model.PurseKind) (*model.Balance, error) {
	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO balances (customer_id, kind, amount)
		VALUES ($1, $2, 0)
		ON CONFLICT (customer_id, kind) DO NOTHING`,
		customerID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to create balance: %w", err)
	}

	var balance model.Balance
	err = s.tx.GetContext(ctx, &balance,
		"SELECT * FROM balances WHERE customer_id = $1 AND kind = $2 FOR UPDATE",
		customerID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return &balance, nil
}

func (s *txStore) AppendLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error {
	if len(entry.Metadata) == 0 {
		entry.Metadata = model.EmptyMetadata
	}

	err := s.tx.QueryRowxContext(ctx, `
		INSERT INTO ledger_entries (
			balance_id, customer_id, direction, reason, status, amount,
			balance_before, balance_after, subscription_id, idempotency_key, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id, created_at`,
		entry.BalanceID,
		entry.CustomerID,
		entry.Direction,
		entry.Reason,
		entry.Status,
		entry.Amount,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.SubscriptionID,
		entry.IdempotencyKey,
		entry.Metadata,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accrual.ErrDuplicateCredit
		}
		return err
	}
	return nil
}

func (s *txStore) IncrementAccrued(ctx context.Context, id uuid.UUID, amount decimal.Decimal, expectedVersion int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := s.tx.GetContext(ctx, &sub, `
		UPDATE subscriptions SET
			current_accrued = current_accrued + $2,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $3
		RETURNING *`,
		id, amount, expectedVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, accrual.ErrStaleSubscription
		}
		return nil, err
	}
	return &sub, nil
}

func (s *txStore) SetBalanceAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	res, err := s.tx.ExecContext(ctx,
		"UPDATE balances SET amount = $2, updated_at = NOW() WHERE id = $1",
		id, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrBalanceNotFound
	}
	return nil
}
