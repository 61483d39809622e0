package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/accrual"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

var subscriptionColumns = []string{
	"id", "customer_id", "plan_id", "reward_per_period", "target_amount", "purse_kind",
	"current_accrued", "status", "starts_at", "ends_at", "version", "created_at", "updated_at",
}

var balanceColumns = []string{"id", "customer_id", "kind", "amount", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(sqlx.NewDb(db, "pgx")), mock
}

func q(s string) string {
	return regexp.QuoteMeta(s)
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE balances SET amount = $2")).
		WithArgs(id, "12.5").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.WithinTx(context.Background(), func(tx accrual.Tx) error {
		return tx.SetBalanceAmount(context.Background(), id, decimal.RequireFromString("12.5"))
	})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE balances SET amount = $2")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(tx accrual.Tx) error {
		return tx.SetBalanceAmount(context.Background(), uuid.New(), decimal.NewFromInt(1))
	})

	require.ErrorIs(t, err, ErrBalanceNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendLedgerEntry_ConflictIsDuplicate(t *testing.T) {
	repo, mock := newMockRepo(t)
	key := "reward:abc:2026-03-02"

	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO ledger_entries")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(tx accrual.Tx) error {
		return tx.AppendLedgerEntry(context.Background(), &model.LedgerEntry{
			BalanceID:      uuid.New(),
			CustomerID:     1,
			Direction:      model.DirectionCredit,
			Reason:         model.EntryReasonReward,
			Status:         model.EntryStatusSuccess,
			Amount:         decimal.NewFromInt(10),
			BalanceBefore:  decimal.Zero,
			BalanceAfter:   decimal.NewFromInt(10),
			IdempotencyKey: &key,
		})
	})

	require.ErrorIs(t, err, accrual.ErrDuplicateCredit)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementAccrued_VersionMismatchIsStale(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(q("UPDATE subscriptions SET")).
		WithArgs(id, "10", int64(3)).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns))
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(tx accrual.Tx) error {
		_, err := tx.IncrementAccrued(context.Background(), id, decimal.NewFromInt(10), 3)
		return err
	})

	require.ErrorIs(t, err, accrual.ErrStaleSubscription)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyCredit_AgainstSQLStore(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	subID := uuid.New()
	planID := uuid.New()
	balanceID := uuid.New()
	entryID := uuid.New()

	sub := model.Subscription{
		ID:         subID,
		CustomerID: 77,
		PlanID:     planID,
		PlanTerms: model.PlanTerms{
			RewardPerPeriod: decimal.NewFromInt(100),
			TargetAmount:    decimal.NewFromInt(250),
			PurseKind:       model.PurseKindShoppingCredit,
		},
		CurrentAccrued: decimal.NewFromInt(200),
		Status:         model.SubscriptionStatusActive,
		StartsAt:       now.AddDate(0, -1, 0),
		EndsAt:         now.AddDate(0, 1, 0),
		Version:        5,
	}
	subRow := func(accrued string, version int64) *sqlmock.Rows {
		return sqlmock.NewRows(subscriptionColumns).AddRow(
			subID.String(), int64(77), planID.String(), "100", "250", "shopping_credit",
			accrued, "active", sub.StartsAt, sub.EndsAt, version, now, now,
		)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT * FROM subscriptions WHERE id = $1 FOR UPDATE")).
		WithArgs(subID).
		WillReturnRows(subRow("200", 5))
	mock.ExpectQuery(q("SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE idempotency_key = $1)")).
		WithArgs(accrual.IdempotencyKey(subID, now)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(q("INSERT INTO balances")).
		WithArgs(int64(77), "shopping_credit").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("SELECT * FROM balances WHERE customer_id = $1 AND kind = $2 FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(balanceColumns).AddRow(balanceID.String(), int64(77), "shopping_credit", "30", now, now))
	mock.ExpectQuery(q("INSERT INTO ledger_entries")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(entryID.String(), now))
	mock.ExpectQuery(q("UPDATE subscriptions SET")).
		WithArgs(subID, "50", int64(5)).
		WillReturnRows(subRow("250", 6))
	mock.ExpectExec(q("UPDATE balances SET amount = $2")).
		WithArgs(balanceID, "80").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	engine := accrual.NewEngine(repo, log)

	entry, err := engine.ApplyCredit(context.Background(), sub, decimal.NewFromInt(50), now)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, entryID, entry.ID)
	assert.Equal(t, balanceID, entry.BalanceID)
	assert.True(t, entry.BalanceBefore.Equal(decimal.NewFromInt(30)))
	assert.True(t, entry.BalanceAfter.Equal(decimal.NewFromInt(80)))
	assert.True(t, entry.Consistent())
}

func TestListSubscriptions_BuildsFilter(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(q("SELECT * FROM subscriptions WHERE customer_id = $1 AND status = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4")).
		WithArgs(int64(5), "active", 20, 40).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns))

	subs, err := repo.ListSubscriptions(context.Background(), model.SubscriptionFilter{
		CustomerID: 5,
		Status:     model.SubscriptionStatusActive,
		Limit:      20,
		Offset:     40,
	})

	require.NoError(t, err)
	assert.Empty(t, subs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustBalance_RejectsOverdraft(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO balances")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT * FROM balances WHERE customer_id = $1 AND kind = $2 FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(balanceColumns).AddRow(uuid.New().String(), int64(3), "cashback", "5", now, now))
	mock.ExpectRollback()

	_, err := repo.AdjustBalance(context.Background(), 3, model.PurseKindCashback, model.DirectionDebit, decimal.NewFromInt(6), nil)

	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAdminLogsByCustomer_Paginates(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`(?s)`+q("WHERE target_customer_id = $1")+`.*`+q("LIMIT $2 OFFSET $3")).
		WithArgs(int64(71), 20, 40).
		WillReturnRows(sqlmock.NewRows([]string{"id", "admin_id", "action", "target_customer_id", "details", "created_at"}))

	logs, err := repo.GetAdminLogsByCustomer(context.Background(), 71, 20, 40)

	require.NoError(t, err)
	assert.Empty(t, logs)
	require.NoError(t, mock.ExpectationsWereMet())
}
