package subscription_test

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tallerhub/tallerhub/internal/domain/subscription"
)

const monthMillis = int64(30 * 24 * time.Hour / time.Millisecond)

var base = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

// Property: DaysRemaining is the ceiling of the remaining time in days, floored at zero.
func TestDaysRemainingIsCeiling(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("days bound the remaining window", prop.ForAll(
		func(offset int64) bool {
			d := time.Duration(offset) * time.Millisecond
			days := subscription.DaysRemaining(base.Add(d), base)
			if d <= 0 {
				return days == 0
			}
			upper := time.Duration(days) * 24 * time.Hour
			lower := time.Duration(days-1) * 24 * time.Hour
			return days >= 1 && d <= upper && d > lower
		},
		gen.Int64Range(-monthMillis, monthMillis),
	))

	properties.TestingRun(t)
}

// Property: a trial expires exactly when its end lies strictly in the past.
func TestEvaluateExpiresOnlyPastTrials(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("expire iff end before now", prop.ForAll(
		func(offset int64) bool {
			end := base.Add(time.Duration(offset) * time.Millisecond)
			ev := subscription.Evaluate(subscription.Record{
				TenantID: "t",
				Status:   subscription.StatusTrial,
				Trial:    subscription.TrialWindow{End: &end},
			}, base)
			if offset < 0 {
				return ev.Expire && ev.Status == subscription.StatusExpired
			}
			return !ev.Expire && ev.Status == subscription.StatusTrial && ev.DaysRemaining != nil
		},
		gen.Int64Range(-monthMillis, monthMillis),
	))

	properties.Property("non-trial states are stable", prop.ForAll(
		func(offset int64, active bool) bool {
			end := base.Add(time.Duration(offset) * time.Millisecond)
			st := subscription.StatusExpired
			if active {
				st = subscription.StatusActive
			}
			rec := subscription.Record{TenantID: "t", Status: st, Trial: subscription.TrialWindow{End: &end}}
			first := subscription.Evaluate(rec, base)
			second := subscription.Evaluate(rec, base)
			return first == second && first.Status == st && first.DaysRemaining == nil && !first.Expire
		},
		gen.Int64Range(-monthMillis, monthMillis),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
