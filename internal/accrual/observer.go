package accrual

import (
	"time"

	"github.com/google/uuid"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

// Observer is notified about credits, failures and completed runs.
// Implementations must be safe for concurrent use and must not block.
type Observer interface {
	CreditApplied(entry model.LedgerEntry, sub model.Subscription)
	CreditFailed(subscriptionID uuid.UUID, err error)
	RunCompleted(report RunReport, elapsed time.Duration)
}

// Observers fans every notification out to each member.
type Observers []Observer

func (o Observers) CreditApplied(entry model.LedgerEntry, sub model.Subscription) {
	for _, obs := range o {
		obs.CreditApplied(entry, sub)
	}
}

func (o Observers) CreditFailed(subscriptionID uuid.UUID, err error) {
	for _, obs := range o {
		obs.CreditFailed(subscriptionID, err)
	}
}

func (o Observers) RunCompleted(report RunReport, elapsed time.Duration) {
	for _, obs := range o {
		obs.RunCompleted(report, elapsed)
	}
}
