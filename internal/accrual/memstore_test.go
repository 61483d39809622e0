package accrual

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

// memStore is an in-memory Store. Transactions are serialized and roll back
// by restoring a snapshot.
type memStore struct {
	mu       sync.Mutex
	subs     map[uuid.UUID]model.Subscription
	balances map[uuid.UUID]model.Balance
	entries  []model.LedgerEntry
	keys     map[string]bool

	listErr       error
	failAppendFor map[uuid.UUID]error
	// beforeLock runs inside the transaction before the row is read, to
	// simulate a concurrent writer.
	beforeLock func(sub *model.Subscription)
}

func newMemStore(subs ...model.Subscription) *memStore {
	m := &memStore{
		subs:          make(map[uuid.UUID]model.Subscription),
		balances:      make(map[uuid.UUID]model.Balance),
		keys:          make(map[string]bool),
		failAppendFor: make(map[uuid.UUID]error),
	}
	for _, s := range subs {
		m.subs[s.ID] = s
	}
	return m
}

func (m *memStore) ListActive(_ context.Context, asOf time.Time) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]model.Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		if s.Status == model.SubscriptionStatusActive && s.InWindow(asOf) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

type memSnapshot struct {
	subs     map[uuid.UUID]model.Subscription
	balances map[uuid.UUID]model.Balance
	entries  int
	keys     map[string]bool
}

func (m *memStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := memSnapshot{
		subs:     make(map[uuid.UUID]model.Subscription, len(m.subs)),
		balances: make(map[uuid.UUID]model.Balance, len(m.balances)),
		entries:  len(m.entries),
		keys:     make(map[string]bool, len(m.keys)),
	}
	for k, v := range m.subs {
		snap.subs[k] = v
	}
	for k, v := range m.balances {
		snap.balances[k] = v
	}
	for k, v := range m.keys {
		snap.keys[k] = v
	}

	if err := fn(memTx{m}); err != nil {
		m.subs = snap.subs
		m.balances = snap.balances
		m.entries = m.entries[:snap.entries]
		m.keys = snap.keys
		return err
	}
	return nil
}

func (m *memStore) subscription(id uuid.UUID) model.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subs[id]
}

func (m *memStore) ledger() []model.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.LedgerEntry(nil), m.entries...)
}

func (m *memStore) balanceOf(customerID int64, kind model.PurseKind) (model.Balance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.balances {
		if b.CustomerID == customerID && b.Kind == kind {
			return b, true
		}
	}
	return model.Balance{}, false
}

type memTx struct {
	m *memStore
}

func (t memTx) LockSubscription(_ context.Context, id uuid.UUID) (*model.Subscription, error) {
	sub, ok := t.m.subs[id]
	if !ok {
		return nil, errors.New("subscription not found")
	}
	if t.m.beforeLock != nil {
		t.m.beforeLock(&sub)
		t.m.subs[id] = sub
	}
	return &sub, nil
}

func (t memTx) LedgerKeyExists(_ context.Context, key string) (bool, error) {
	return t.m.keys[key], nil
}

func (t memTx) GetOrCreateBalance(_ context.Context, customerID int64, kind model.PurseKind) (*model.Balance, error) {
	for _, b := range t.m.balances {
		if b.CustomerID == customerID && b.Kind == kind {
			return &b, nil
		}
	}
	b := model.Balance{ID: uuid.New(), CustomerID: customerID, Kind: kind, Amount: decimal.Zero}
	t.m.balances[b.ID] = b
	return &b, nil
}

func (t memTx) AppendLedgerEntry(_ context.Context, entry *model.LedgerEntry) error {
	if entry.SubscriptionID != nil {
		if err := t.m.failAppendFor[*entry.SubscriptionID]; err != nil {
			return err
		}
	}
	if entry.IdempotencyKey != nil {
		if t.m.keys[*entry.IdempotencyKey] {
			return ErrDuplicateCredit
		}
		t.m.keys[*entry.IdempotencyKey] = true
	}
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	t.m.entries = append(t.m.entries, *entry)
	return nil
}

func (t memTx) IncrementAccrued(_ context.Context, id uuid.UUID, amount decimal.Decimal, expectedVersion int64) (*model.Subscription, error) {
	sub, ok := t.m.subs[id]
	if !ok {
		return nil, errors.New("subscription not found")
	}
	if sub.Version != expectedVersion {
		return nil, ErrStaleSubscription
	}
	sub.CurrentAccrued = sub.CurrentAccrued.Add(amount)
	sub.Version++
	t.m.subs[id] = sub
	return &sub, nil
}

func (t memTx) SetBalanceAmount(_ context.Context, id uuid.UUID, amount decimal.Decimal) error {
	b, ok := t.m.balances[id]
	if !ok {
		return errors.New("balance not found")
	}
	b.Amount = amount
	t.m.balances[id] = b
	return nil
}

// recordingObserver captures notifications for assertions.
type recordingObserver struct {
	mu       sync.Mutex
	credits  []model.LedgerEntry
	failures []uuid.UUID
	runs     []RunReport
}

func (o *recordingObserver) CreditApplied(entry model.LedgerEntry, _ model.Subscription) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.credits = append(o.credits, entry)
}

func (o *recordingObserver) CreditFailed(id uuid.UUID, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, id)
}

func (o *recordingObserver) RunCompleted(report RunReport, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs = append(o.runs, report)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var (
	day1 = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	day2 = day1.AddDate(0, 0, 1)
	day3 = day1.AddDate(0, 0, 2)
	day4 = day1.AddDate(0, 0, 3)
)

func newSub(customerID int64, reward, target, accrued string) model.Subscription {
	return model.Subscription{
		ID:         uuid.New(),
		CustomerID: customerID,
		PlanID:     uuid.New(),
		PlanTerms: model.PlanTerms{
			RewardPerPeriod: dec(reward),
			TargetAmount:    dec(target),
			PurseKind:       model.PurseKindShoppingCredit,
		},
		CurrentAccrued: dec(accrued),
		Status:         model.SubscriptionStatusActive,
		StartsAt:       day1.AddDate(0, -1, 0),
		EndsAt:         day1.AddDate(0, 6, 0),
		Version:        1,
	}
}
