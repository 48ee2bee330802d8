package subscriptions

import (
	"math"
	"time"

	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
)

// DeriveStatus projects the live status of a user plan at now. Only active and
// cancelled are stored; expiry is computed from the renewal date.
func DeriveStatus(userPlan models.UserPlan, now time.Time, expiringWindow time.Duration) enums.UserPlanStatus {
	if userPlan.Status != enums.UserPlanStatusActive {
		return userPlan.Status
	}
	if userPlan.RenewalDate.Before(now) {
		return enums.UserPlanStatusExpired
	}
	if userPlan.RenewalDate.Sub(now) <= expiringWindow {
		return enums.UserPlanStatusExpiringSoon
	}
	return enums.UserPlanStatusActive
}

// DaysUntilRenewal returns whole days until renewal, rounded down. Past
// renewals yield negative values.
func DaysUntilRenewal(renewal, now time.Time) int {
	return int(math.Floor(renewal.Sub(now).Hours() / 24))
}

// NextRenewal extends a plan by one period. Expired plans restart from now.
func NextRenewal(current, now time.Time, period time.Duration) time.Time {
	if current.Before(now) {
		return now.Add(period)
	}
	return current.Add(period)
}
