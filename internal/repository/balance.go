package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

var (
	ErrBalanceNotFound     = errors.New("balance not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// GetBalances returns every purse a customer holds
func (r *Repository) GetBalances(ctx context.Context, customerID int64) ([]model.Balance, error) {
	balances := []model.Balance{}
	err := r.db.SelectContext(ctx, &balances,
		"SELECT * FROM balances WHERE customer_id = $1 ORDER BY kind ASC", customerID)
	return balances, err
}

// ListLedgerEntries returns a customer's ledger, newest first
func (r *Repository) ListLedgerEntries(ctx context.Context, customerID int64, limit, offset int) ([]model.LedgerEntry, error) {
	entries := []model.LedgerEntry{}
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM ledger_entries
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		customerID, limit, offset)
	return entries, err
}

// SumLedger returns credits minus debits recorded against a balance
func (r *Repository) SumLedger(ctx context.Context, balanceID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(CASE WHEN direction = 'credit' THEN amount ELSE -amount END), 0)
		FROM ledger_entries
		WHERE balance_id = $1 AND status = 'success'`, balanceID)
	return sum, err
}

// AdjustBalance applies a manual credit or debit and journals it in the same
// transaction. Debits may not take the purse below zero.
func (r *Repository) AdjustBalance(ctx context.Context, customerID int64, kind model.PurseKind, direction model.Direction, amount decimal.Decimal, metadata []byte) (*model.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive, got %s", amount)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	store := &txStore{tx: tx}

	balance, err := store.GetOrCreateBalance(ctx, customerID, kind)
	if err != nil {
		return nil, err
	}

	entry := &model.LedgerEntry{
		BalanceID:     balance.ID,
		CustomerID:    customerID,
		Direction:     direction,
		Reason:        model.EntryReasonManualAdjustment,
		Status:        model.EntryStatusSuccess,
		Amount:        amount,
		BalanceBefore: balance.Amount,
		Metadata:      metadata,
	}
	entry.BalanceAfter = balance.Amount.Add(entry.Signed())

	if entry.BalanceAfter.IsNegative() {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance.Amount, amount)
	}

	if err := store.AppendLedgerEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create ledger entry: %w", err)
	}
	if err := store.SetBalanceAmount(ctx, balance.ID, entry.BalanceAfter); err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}
