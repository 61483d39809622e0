// Package accrual credits recurring subscription rewards into customer
// balances. A run selects eligible subscriptions, computes a credit capped at
// the remaining target and applies it in a single store transaction together
// with the ledger entry and the subscription's accrued total.
package accrual

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

var (
	// ErrDuplicateCredit means the subscription was already credited for the
	// run's calendar day. Runs treat it as a no-op.
	ErrDuplicateCredit = errors.New("credit already applied for this day")
	// ErrIneligible means the locked subscription row no longer qualifies.
	ErrIneligible = errors.New("subscription is not eligible")
	// ErrStaleSubscription means the subscription changed after it was read.
	ErrStaleSubscription = errors.New("subscription was modified concurrently")
	// ErrInvariantViolation means applying the credit would break an invariant
	// (non-positive credit, accrued above target).
	ErrInvariantViolation = errors.New("accrual invariant violated")
	// ErrStorageWrite wraps any store failure inside the credit transaction.
	ErrStorageWrite = errors.New("storage write failed")
)

// Store is the persistence the engine needs.
type Store interface {
	// ListActive returns subscriptions with status active whose window
	// contains asOf. The engine filters again, so a broader set is fine.
	ListActive(ctx context.Context, asOf time.Time) ([]model.Subscription, error)
	// WithinTx runs fn in one transaction, committing only when fn returns nil.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of writes applied atomically per credit.
type Tx interface {
	LockSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error)
	LedgerKeyExists(ctx context.Context, key string) (bool, error)
	GetOrCreateBalance(ctx context.Context, customerID int64, kind model.PurseKind) (*model.Balance, error)
	AppendLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error
	// IncrementAccrued adds amount to the subscription's accrued total if its
	// version still equals expectedVersion, returning the updated row.
	IncrementAccrued(ctx context.Context, id uuid.UUID, amount decimal.Decimal, expectedVersion int64) (*model.Subscription, error)
	SetBalanceAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
}

// Failure is one subscription that could not be credited during a run.
type Failure struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	Err            error     `json:"-"`
}

func (f Failure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		SubscriptionID uuid.UUID `json:"subscription_id"`
		Reason         string    `json:"reason"`
		Error          string    `json:"error"`
	}{f.SubscriptionID, FailureReason(f.Err), msg})
}

// RunReport summarizes a single RunOnce call.
type RunReport struct {
	AsOf          time.Time       `json:"as_of"`
	Eligible      int             `json:"eligible"`
	Processed     int             `json:"processed"`
	Duplicates    int             `json:"duplicates"`
	Skipped       int             `json:"skipped"`
	Aborted       int             `json:"aborted"`
	CreditedTotal decimal.Decimal `json:"credited_total"`
	Failures      []Failure       `json:"failures"`
	// Err is set when the candidate set could not be loaded at all.
	Err error `json:"-"`
}

// Failed reports whether any subscription failed or the run could not start.
func (r RunReport) Failed() bool {
	return r.Err != nil || len(r.Failures) > 0
}

// FailureReason maps an apply error to a short label for metrics and logs.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDuplicateCredit):
		return "duplicate"
	case errors.Is(err, ErrIneligible):
		return "ineligible"
	case errors.Is(err, ErrStaleSubscription):
		return "stale"
	case errors.Is(err, ErrInvariantViolation):
		return "invariant"
	case errors.Is(err, ErrStorageWrite):
		return "storage"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "unknown"
	}
}
