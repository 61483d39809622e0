package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/accrual"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

func TestCreditApplied(t *testing.T) {
	m := MustNewMetrics(prometheus.NewRegistry())
	sub := model.Subscription{PlanTerms: model.PlanTerms{PurseKind: model.PurseKindShoppingCredit}}

	m.CreditApplied(model.LedgerEntry{Amount: decimal.NewFromInt(100)}, sub)
	m.CreditApplied(model.LedgerEntry{Amount: decimal.RequireFromString("50.5")}, sub)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.credits.WithLabelValues("shopping_credit")))
	assert.Equal(t, 150.5, testutil.ToFloat64(m.creditedAmount.WithLabelValues("shopping_credit")))
}

func TestCreditFailed_LabelsReason(t *testing.T) {
	m := MustNewMetrics(prometheus.NewRegistry())

	m.CreditFailed(uuid.New(), fmt.Errorf("%w: lock subscription: %w", accrual.ErrStorageWrite, errors.New("conn reset")))
	m.CreditFailed(uuid.New(), accrual.ErrStaleSubscription)
	m.CreditFailed(uuid.New(), accrual.ErrStaleSubscription)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("storage")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.failures.WithLabelValues("stale")))
}

func TestRunCompleted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNewMetrics(reg)

	m.RunCompleted(accrual.RunReport{
		Processed:  7,
		Duplicates: 2,
		Failures:   []accrual.Failure{{SubscriptionID: uuid.New(), Err: accrual.ErrInvariantViolation}},
	}, 3*time.Second)

	assert.Equal(t, 7.0, testutil.ToFloat64(m.outcomes.WithLabelValues("processed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.outcomes.WithLabelValues("duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.runDuration))
	assert.Greater(t, testutil.ToFloat64(m.lastRun), 0.0)
}

func TestMustNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustNewMetrics(reg)

	assert.Panics(t, func() { MustNewMetrics(reg) })
}
