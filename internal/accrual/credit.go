package accrual

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

// Eligible reports whether sub should receive a credit at asOf.
func Eligible(sub model.Subscription, asOf time.Time) bool {
	return sub.Status == model.SubscriptionStatusActive &&
		sub.InWindow(asOf) &&
		!sub.IsFullyAccrued()
}

// SelectEligible keeps the subscriptions that qualify for a credit at asOf.
func SelectEligible(subs []model.Subscription, asOf time.Time) []model.Subscription {
	eligible := make([]model.Subscription, 0, len(subs))
	for _, sub := range subs {
		if Eligible(sub, asOf) {
			eligible = append(eligible, sub)
		}
	}
	return eligible
}

// ComputeCredit returns min(reward per period, target - accrued). The final
// period pays exactly the remainder so accrued never passes the target.
func ComputeCredit(sub model.Subscription) (decimal.Decimal, error) {
	credit := decimal.Min(sub.RewardPerPeriod, sub.Remaining())
	if err := checkCredit(sub, credit); err != nil {
		return decimal.Zero, err
	}
	return credit, nil
}

func checkCredit(sub model.Subscription, credit decimal.Decimal) error {
	if !credit.IsPositive() {
		return fmt.Errorf("%w: credit %s for subscription %s is not positive", ErrInvariantViolation, credit, sub.ID)
	}
	if sub.CurrentAccrued.Add(credit).GreaterThan(sub.TargetAmount) {
		return fmt.Errorf("%w: credit %s would take subscription %s to %s, target %s",
			ErrInvariantViolation, credit, sub.ID, sub.CurrentAccrued.Add(credit), sub.TargetAmount)
	}
	return nil
}

// IdempotencyKey identifies the credit for one subscription on asOf's
// calendar day, in asOf's own location.
func IdempotencyKey(subscriptionID uuid.UUID, asOf time.Time) string {
	return "reward:" + subscriptionID.String() + ":" + asOf.Format(time.DateOnly)
}
