package scheduler

import (
	"time"
)

// DayPredicate reports whether rewards should be disbursed on the day t falls on.
type DayPredicate func(t time.Time) bool

// EveryDay accepts every day.
func EveryDay(time.Time) bool { return true }

// BusinessDays accepts Monday to Friday in loc, except the listed holidays.
func BusinessDays(loc *time.Location, holidays []time.Time) DayPredicate {
	if loc == nil {
		loc = time.UTC
	}
	closed := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		closed[h.In(loc).Format(time.DateOnly)] = struct{}{}
	}

	return func(t time.Time) bool {
		local := t.In(loc)
		switch local.Weekday() {
		case time.Saturday, time.Sunday:
			return false
		}
		_, holiday := closed[local.Format(time.DateOnly)]
		return !holiday
	}
}
