package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

// PurseKind names a bucket of a customer's balance.
type PurseKind string

const (
	PurseKindShoppingCredit PurseKind = "shopping_credit"
	PurseKindCashback       PurseKind = "cashback"
)

func (k PurseKind) Valid() bool {
	switch k {
	case PurseKindShoppingCredit, PurseKindCashback:
		return true
	}
	return false
}

type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

type EntryReason string

const (
	EntryReasonReward           EntryReason = "reward"
	EntryReasonManualAdjustment EntryReason = "manual_adjustment"
)

type EntryStatus string

const (
	EntryStatusPending EntryStatus = "pending"
	EntryStatusSuccess EntryStatus = "success"
	EntryStatusFailed  EntryStatus = "failed"
)

// Balance is the materialized sum of a purse's ledger entries.
type Balance struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	CustomerID int64           `json:"customer_id" db:"customer_id"`
	Kind       PurseKind       `json:"kind" db:"kind"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// LedgerEntry is an append-only record of one balance mutation.
type LedgerEntry struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	BalanceID      uuid.UUID       `json:"balance_id" db:"balance_id"`
	CustomerID     int64           `json:"customer_id" db:"customer_id"`
	Direction      Direction       `json:"direction" db:"direction"`
	Reason         EntryReason     `json:"reason" db:"reason"`
	Status         EntryStatus     `json:"status" db:"status"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	BalanceBefore  decimal.Decimal `json:"balance_before" db:"balance_before"`
	BalanceAfter   decimal.Decimal `json:"balance_after" db:"balance_after"`
	SubscriptionID *uuid.UUID      `json:"subscription_id,omitempty" db:"subscription_id"`
	IdempotencyKey *string         `json:"idempotency_key,omitempty" db:"idempotency_key"`
	Metadata       types.JSONText  `json:"metadata" db:"metadata"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Signed returns the amount with the sign of its direction.
func (e *LedgerEntry) Signed() decimal.Decimal {
	if e.Direction == DirectionDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Consistent checks balance_after = balance_before ± amount.
func (e *LedgerEntry) Consistent() bool {
	return e.Amount.IsPositive() && e.BalanceBefore.Add(e.Signed()).Equal(e.BalanceAfter)
}

// EmptyMetadata is stored when an entry carries no metadata.
var EmptyMetadata = types.JSONText("{}")
