package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/accrual"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/repository"
)

// fakeRepo is an in-memory stand-in for *repository.Repository.
type fakeRepo struct {
	mu            sync.Mutex
	plans         map[uuid.UUID]*model.RewardPlan
	subs          map[uuid.UUID]*model.Subscription
	balances      []model.Balance
	ledgerSums    map[uuid.UUID]decimal.Decimal
	settings      map[string]string
	discounts     map[string]model.CategoryDiscount
	adjustments   []adjustCall
	expireCalls   int
	expireCutoffs []time.Time
	adminLogs     []model.AdminLog
	adminLogErr   error
}

type adjustCall struct {
	customerID int64
	kind       model.PurseKind
	direction  model.Direction
	amount     decimal.Decimal
	metadata   map[string]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		plans:      map[uuid.UUID]*model.RewardPlan{},
		subs:       map[uuid.UUID]*model.Subscription{},
		ledgerSums: map[uuid.UUID]decimal.Decimal{},
		settings:   map[string]string{},
		discounts:  map[string]model.CategoryDiscount{},
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func (f *fakeRepo) GetPlan(_ context.Context, id uuid.UUID) (*model.RewardPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[id]
	if !ok {
		return nil, repository.ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) ListPlans(_ context.Context, activeOnly bool) ([]model.RewardPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	plans := []model.RewardPlan{}
	for _, p := range f.plans {
		if activeOnly && !p.IsActive {
			continue
		}
		plans = append(plans, *p)
	}
	return plans, nil
}

func (f *fakeRepo) CreatePlan(_ context.Context, plan *model.RewardPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	plan.ID = uuid.New()
	cp := *plan
	f.plans[plan.ID] = &cp
	return nil
}

func (f *fakeRepo) UpdatePlan(_ context.Context, plan *model.RewardPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.plans[plan.ID]; !ok {
		return repository.ErrPlanNotFound
	}
	cp := *plan
	f.plans[plan.ID] = &cp
	return nil
}

func (f *fakeRepo) DeactivatePlan(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[id]
	if !ok {
		return repository.ErrPlanNotFound
	}
	p.IsActive = false
	return nil
}

func (f *fakeRepo) GetSubscription(_ context.Context, id uuid.UUID) (*model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok {
		return nil, repository.ErrSubscriptionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) ListSubscriptions(_ context.Context, filter model.SubscriptionFilter) ([]model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	subs := []model.Subscription{}
	for _, s := range f.subs {
		if filter.CustomerID != 0 && s.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		subs = append(subs, *s)
	}
	if len(subs) > filter.Limit {
		subs = subs[:filter.Limit]
	}
	return subs, nil
}

func (f *fakeRepo) CreateSubscription(_ context.Context, sub *model.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub.ID = uuid.New()
	sub.Version = 1
	cp := *sub
	f.subs[sub.ID] = &cp
	return nil
}

func (f *fakeRepo) CancelSubscription(_ context.Context, id uuid.UUID) (*model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok {
		return nil, repository.ErrSubscriptionNotFound
	}
	if s.Status != model.SubscriptionStatusActive {
		return nil, repository.ErrSubscriptionNotActive
	}
	s.Status = model.SubscriptionStatusCancelled
	s.Version++
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expireCalls++
	f.expireCutoffs = append(f.expireCutoffs, now)
	var n int64
	for _, s := range f.subs {
		if s.Status == model.SubscriptionStatusActive && s.EndsAt.Before(now) {
			s.Status = model.SubscriptionStatusExpired
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) expireCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expireCalls
}

func (f *fakeRepo) HasActiveSubscription(_ context.Context, customerID int64, planID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.CustomerID == customerID && s.PlanID == planID && s.Status == model.SubscriptionStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) GetBalances(_ context.Context, customerID int64) ([]model.Balance, error) {
	out := []model.Balance{}
	for _, b := range f.balances {
		if b.CustomerID == customerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListLedgerEntries(_ context.Context, _ int64, limit, offset int) ([]model.LedgerEntry, error) {
	return make([]model.LedgerEntry, 0, limit+offset), nil
}

func (f *fakeRepo) SumLedger(_ context.Context, balanceID uuid.UUID) (decimal.Decimal, error) {
	return f.ledgerSums[balanceID], nil
}

func (f *fakeRepo) AdjustBalance(_ context.Context, customerID int64, kind model.PurseKind, direction model.Direction, amount decimal.Decimal, metadata []byte) (*model.LedgerEntry, error) {
	var meta map[string]string
	if err := json.Unmarshal(metadata, &meta); err != nil {
		return nil, err
	}
	f.adjustments = append(f.adjustments, adjustCall{customerID, kind, direction, amount, meta})
	entry := &model.LedgerEntry{
		ID:            uuid.New(),
		CustomerID:    customerID,
		Direction:     direction,
		Reason:        model.EntryReasonManualAdjustment,
		Status:        model.EntryStatusSuccess,
		Amount:        amount,
		BalanceBefore: decimal.Zero,
		Metadata:      metadata,
	}
	entry.BalanceAfter = entry.Signed()
	return entry, nil
}

func (f *fakeRepo) GetSetting(_ context.Context, key string) (string, error) {
	v, ok := f.settings[key]
	if !ok {
		return "", repository.ErrSettingNotFound
	}
	return v, nil
}

func (f *fakeRepo) SetSetting(_ context.Context, key, value string) error {
	f.settings[key] = value
	return nil
}

func (f *fakeRepo) ListSettings(_ context.Context) ([]model.Setting, error) {
	out := []model.Setting{}
	for k, v := range f.settings {
		out = append(out, model.Setting{Key: k, Value: v})
	}
	return out, nil
}

func (f *fakeRepo) DeleteSetting(_ context.Context, key string) error {
	if _, ok := f.settings[key]; !ok {
		return repository.ErrSettingNotFound
	}
	delete(f.settings, key)
	return nil
}

func (f *fakeRepo) ListCategoryDiscounts(_ context.Context) ([]model.CategoryDiscount, error) {
	out := []model.CategoryDiscount{}
	for _, d := range f.discounts {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeRepo) UpsertCategoryDiscount(_ context.Context, d *model.CategoryDiscount) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	f.discounts[d.CategoryID] = *d
	return nil
}

func (f *fakeRepo) DeleteCategoryDiscount(_ context.Context, categoryID string) error {
	if _, ok := f.discounts[categoryID]; !ok {
		return repository.ErrCategoryDiscountNotFound
	}
	delete(f.discounts, categoryID)
	return nil
}

// stubEngine returns a canned report and counts calls.
type stubEngine struct {
	mu      sync.Mutex
	calls   int
	report  accrual.RunReport
	release chan struct{}
	started chan struct{}
}

func (e *stubEngine) RunOnce(_ context.Context, asOf time.Time) accrual.RunReport {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.started != nil {
		close(e.started)
	}
	if e.release != nil {
		<-e.release
	}
	r := e.report
	r.AsOf = asOf
	return r
}

func (f *fakeRepo) CreateAdminLog(_ context.Context, log *model.AdminLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.adminLogErr != nil {
		return f.adminLogErr
	}
	log.ID = uuid.New()
	log.CreatedAt = time.Now()
	f.adminLogs = append(f.adminLogs, *log)
	return nil
}

func (f *fakeRepo) GetAdminLogs(_ context.Context, limit, offset int) ([]model.AdminLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if offset >= len(f.adminLogs) {
		return []model.AdminLog{}, nil
	}
	end := offset + limit
	if end > len(f.adminLogs) {
		end = len(f.adminLogs)
	}
	return append([]model.AdminLog(nil), f.adminLogs[offset:end]...), nil
}

func (f *fakeRepo) GetAdminLogsByCustomer(_ context.Context, customerID int64, limit, offset int) ([]model.AdminLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.AdminLog{}
	skipped := 0
	for _, l := range f.adminLogs {
		if l.TargetCustomerID == nil || *l.TargetCustomerID != customerID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(out) < limit {
			out = append(out, l)
		}
	}
	return out, nil
}
