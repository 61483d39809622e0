package accrual

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

const DefaultWorkers = 4

type Engine struct {
	store    Store
	log      *logrus.Logger
	observer Observer
	workers  int
}

type Option func(*Engine)

// WithWorkers bounds how many subscriptions are credited concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

func NewEngine(store Store, log *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		log:      log,
		observer: Observers(nil),
		workers:  DefaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOnce credits every eligible subscription for asOf. It never returns an
// error: failures are scoped to a subscription and collected in the report.
// Cancelling ctx stops dispatching new subscriptions; transactions already
// started are allowed to finish.
func (e *Engine) RunOnce(ctx context.Context, asOf time.Time) RunReport {
	started := time.Now()
	report := RunReport{AsOf: asOf, CreditedTotal: decimal.Zero}
	defer func() {
		e.observer.RunCompleted(report, time.Since(started))
	}()

	subs, err := e.store.ListActive(ctx, asOf)
	if err != nil {
		report.Err = fmt.Errorf("list active subscriptions: %w", err)
		e.log.WithError(err).Error("reward run could not load subscriptions")
		return report
	}

	eligible := SelectEligible(subs, asOf)
	report.Eligible = len(eligible)

	e.log.WithFields(logrus.Fields{
		"as_of":    asOf.Format(time.RFC3339),
		"active":   len(subs),
		"eligible": len(eligible),
		"workers":  e.workers,
	}).Info("reward run started")

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(e.workers)

	for i := range eligible {
		if ctx.Err() != nil {
			mu.Lock()
			report.Aborted = len(eligible) - i
			mu.Unlock()
			break
		}

		sub := eligible[i]
		g.Go(func() error {
			entry, err := e.process(ctx, sub, asOf)

			mu.Lock()
			defer mu.Unlock()
			e.record(&report, sub, entry, err)
			return nil
		})
	}
	_ = g.Wait()

	e.log.WithFields(logrus.Fields{
		"as_of":          asOf.Format(time.RFC3339),
		"eligible":       report.Eligible,
		"processed":      report.Processed,
		"duplicates":     report.Duplicates,
		"skipped":        report.Skipped,
		"aborted":        report.Aborted,
		"failed":         len(report.Failures),
		"credited_total": report.CreditedTotal.String(),
		"elapsed":        time.Since(started).String(),
	}).Info("reward run finished")

	return report
}

func (e *Engine) process(ctx context.Context, sub model.Subscription, asOf time.Time) (*model.LedgerEntry, error) {
	credit, err := ComputeCredit(sub)
	if err != nil {
		return nil, err
	}
	return e.ApplyCredit(ctx, sub, credit, asOf)
}

// record is called with the report lock held.
func (e *Engine) record(report *RunReport, sub model.Subscription, entry *model.LedgerEntry, err error) {
	fields := logrus.Fields{
		"subscription_id": sub.ID,
		"customer_id":     sub.CustomerID,
	}

	switch {
	case err == nil:
		report.Processed++
		report.CreditedTotal = report.CreditedTotal.Add(entry.Amount)
		e.observer.CreditApplied(*entry, sub)
		fields["amount"] = entry.Amount.String()
		fields["balance_after"] = entry.BalanceAfter.String()
		e.log.WithFields(fields).Debug("reward credited")
	case errors.Is(err, ErrDuplicateCredit):
		report.Duplicates++
		e.log.WithFields(fields).Info("reward already credited for this day, skipping")
	case errors.Is(err, ErrIneligible):
		report.Skipped++
		e.log.WithFields(fields).Info("subscription no longer eligible, skipping")
	default:
		report.Failures = append(report.Failures, Failure{SubscriptionID: sub.ID, Err: err})
		e.observer.CreditFailed(sub.ID, err)
		fields["reason"] = FailureReason(err)
		e.log.WithFields(fields).WithError(err).Error("failed to credit reward")
	}
}

// ApplyCredit journals credit against sub's purse for asOf. The ledger entry,
// the balance update and the accrual increment commit together or not at all.
// The transaction runs detached from ctx's cancellation so a cancelled run
// cannot interrupt it mid-commit.
func (e *Engine) ApplyCredit(ctx context.Context, sub model.Subscription, credit decimal.Decimal, asOf time.Time) (*model.LedgerEntry, error) {
	key := IdempotencyKey(sub.ID, asOf)
	txCtx := context.WithoutCancel(ctx)

	var entry *model.LedgerEntry
	err := e.store.WithinTx(txCtx, func(tx Tx) error {
		locked, err := tx.LockSubscription(txCtx, sub.ID)
		if err != nil {
			return storageErr("lock subscription", err)
		}

		exists, err := tx.LedgerKeyExists(txCtx, key)
		if err != nil {
			return storageErr("check idempotency key", err)
		}
		if exists {
			return ErrDuplicateCredit
		}

		if !Eligible(*locked, asOf) {
			return ErrIneligible
		}
		if locked.Version != sub.Version {
			return fmt.Errorf("%w: read version %d, stored version %d", ErrStaleSubscription, sub.Version, locked.Version)
		}
		if err := checkCredit(*locked, credit); err != nil {
			return err
		}

		balance, err := tx.GetOrCreateBalance(txCtx, locked.CustomerID, locked.PurseKind)
		if err != nil {
			return storageErr("get balance", err)
		}

		before := balance.Amount
		after := before.Add(credit)
		subscriptionID := locked.ID
		entry = &model.LedgerEntry{
			BalanceID:      balance.ID,
			CustomerID:     locked.CustomerID,
			Direction:      model.DirectionCredit,
			Reason:         model.EntryReasonReward,
			Status:         model.EntryStatusSuccess,
			Amount:         credit,
			BalanceBefore:  before,
			BalanceAfter:   after,
			SubscriptionID: &subscriptionID,
			IdempotencyKey: &key,
			Metadata:       rewardMetadata(locked, asOf),
		}
		if err := tx.AppendLedgerEntry(txCtx, entry); err != nil {
			return storageErr("append ledger entry", err)
		}

		updated, err := tx.IncrementAccrued(txCtx, locked.ID, credit, locked.Version)
		if err != nil {
			return storageErr("increment accrued", err)
		}
		if updated.CurrentAccrued.GreaterThan(updated.TargetAmount) {
			return fmt.Errorf("%w: subscription %s accrued %s above target %s",
				ErrInvariantViolation, updated.ID, updated.CurrentAccrued, updated.TargetAmount)
		}

		if err := tx.SetBalanceAmount(txCtx, balance.ID, after); err != nil {
			return storageErr("set balance amount", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// storageErr tags err as a storage failure unless it already carries one of
// the engine's own outcomes.
func storageErr(op string, err error) error {
	if errors.Is(err, ErrDuplicateCredit) || errors.Is(err, ErrStaleSubscription) || errors.Is(err, ErrStorageWrite) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageWrite, op, err)
}

func rewardMetadata(sub *model.Subscription, asOf time.Time) types.JSONText {
	raw, err := json.Marshal(map[string]string{
		"plan_id":        sub.PlanID.String(),
		"as_of":          asOf.Format(time.RFC3339),
		"accrued_before": sub.CurrentAccrued.String(),
		"target":         sub.TargetAmount.String(),
	})
	if err != nil {
		return model.EmptyMetadata
	}
	return types.JSONText(raw)
}
