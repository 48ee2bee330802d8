package subscriptions

import (
	"testing"
	"time"

	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
)

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	window := 7 * 24 * time.Hour

	cases := []struct {
		name    string
		stored  enums.UserPlanStatus
		renewal time.Time
		want    enums.UserPlanStatus
	}{
		{"renewal passed", enums.UserPlanStatusActive, now.Add(-time.Second), enums.UserPlanStatusExpired},
		{"three days left", enums.UserPlanStatusActive, now.Add(3 * 24 * time.Hour), enums.UserPlanStatusExpiringSoon},
		{"exactly seven days", enums.UserPlanStatusActive, now.Add(window), enums.UserPlanStatusExpiringSoon},
		{"thirty days left", enums.UserPlanStatusActive, now.Add(30 * 24 * time.Hour), enums.UserPlanStatusActive},
		{"cancelled in future", enums.UserPlanStatusCancelled, now.Add(30 * 24 * time.Hour), enums.UserPlanStatusCancelled},
		{"cancelled in past", enums.UserPlanStatusCancelled, now.Add(-48 * time.Hour), enums.UserPlanStatusCancelled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveStatus(models.UserPlan{Status: tc.stored, RenewalDate: tc.renewal}, now, window)
			if got != tc.want {
				t.Fatalf("expected %s got %s", tc.want, got)
			}
		})
	}
}

func TestDaysUntilRenewal(t *testing.T) {
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		renewal time.Time
		want    int
	}{
		{now.Add(30 * 24 * time.Hour), 30},
		{now.Add(5*24*time.Hour - time.Minute), 4},
		{now.Add(time.Hour), 0},
		{now.Add(-time.Hour), -1},
		{now.Add(-5 * 24 * time.Hour), -5},
	}
	for _, tc := range cases {
		if got := DaysUntilRenewal(tc.renewal, now); got != tc.want {
			t.Fatalf("renewal %s: expected %d got %d", tc.renewal, tc.want, got)
		}
	}
}

func TestNextRenewal(t *testing.T) {
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	period := 30 * 24 * time.Hour

	expired := now.Add(-5 * 24 * time.Hour)
	if got := NextRenewal(expired, now, period); !got.Equal(now.Add(period)) {
		t.Fatalf("expired plan should restart from now, got %s", got)
	}

	upcoming := now.Add(10 * 24 * time.Hour)
	if got := NextRenewal(upcoming, now, period); !got.Equal(upcoming.Add(period)) {
		t.Fatalf("active plan should extend from renewal, got %s", got)
	}
}
