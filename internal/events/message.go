package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/accrual"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

const (
	TypeRewardCredited     = "reward.credited"
	TypeRewardRunCompleted = "reward.run_completed"
)

// Message is the envelope published to the broker.
type Message struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type RewardCredited struct {
	EntryID        uuid.UUID       `json:"entry_id"`
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	CustomerID     int64           `json:"customer_id"`
	PurseKind      model.PurseKind `json:"purse_kind"`
	Amount         decimal.Decimal `json:"amount"`
	BalanceAfter   decimal.Decimal `json:"balance_after"`
	Accrued        decimal.Decimal `json:"accrued"`
	Target         decimal.Decimal `json:"target"`
	IdempotencyKey string          `json:"idempotency_key"`
}

type RewardRunCompleted struct {
	AsOf          string          `json:"as_of"`
	Eligible      int             `json:"eligible"`
	Processed     int             `json:"processed"`
	Duplicates    int             `json:"duplicates"`
	Failed        int             `json:"failed"`
	CreditedTotal decimal.Decimal `json:"credited_total"`
	ElapsedMillis int64           `json:"elapsed_ms"`
}

func newMessage(kind string, payload any, at time.Time) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: kind, OccurredAt: at.UTC(), Payload: raw}, nil
}

// CreditedMessage describes a journaled reward credit. sub is the
// subscription as read before the credit.
func CreditedMessage(entry model.LedgerEntry, sub model.Subscription) (Message, error) {
	payload := RewardCredited{
		EntryID:        entry.ID,
		SubscriptionID: sub.ID,
		CustomerID:     entry.CustomerID,
		PurseKind:      sub.PurseKind,
		Amount:         entry.Amount,
		BalanceAfter:   entry.BalanceAfter,
		Accrued:        sub.CurrentAccrued.Add(entry.Amount),
		Target:         sub.TargetAmount,
	}
	if entry.IdempotencyKey != nil {
		payload.IdempotencyKey = *entry.IdempotencyKey
	}

	at := entry.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	return newMessage(TypeRewardCredited, payload, at)
}

func RunCompletedMessage(report accrual.RunReport, elapsed time.Duration) (Message, error) {
	return newMessage(TypeRewardRunCompleted, RewardRunCompleted{
		AsOf:          report.AsOf.Format(time.DateOnly),
		Eligible:      report.Eligible,
		Processed:     report.Processed,
		Duplicates:    report.Duplicates,
		Failed:        len(report.Failures),
		CreditedTotal: report.CreditedTotal,
		ElapsedMillis: elapsed.Milliseconds(),
	}, time.Now())
}
