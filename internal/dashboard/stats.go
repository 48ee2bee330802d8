package dashboard

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
)

func (s *service) Stats(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	summary, err := s.subs.PaymentSummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	monthly, err := s.spending.SpentSince(ctx, userID, monthStart(now))
	if err != nil {
		return nil, err
	}
	userPlans, err := s.subs.ListUserPlans(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &UserStats{
		Spending: SpendingStats{
			TotalSpent:         summary.TotalSpent,
			MonthlySpent:       monthly,
			AverageTransaction: decimal.Zero,
		},
		Payments: PaymentStats{
			TotalTransactions:  summary.TotalTransactions,
			SuccessfulPayments: summary.CompletedTransactions,
			FailedPayments:     summary.FailedTransactions,
			SuccessRate:        math.Round(summary.SuccessRate*100) / 100,
		},
		Account: AccountStats{
			MemberSince:    user.CreatedAt,
			AccountAgeDays: int(now.Sub(user.CreatedAt) / (24 * time.Hour)),
			LastActivity:   lastActivity(user.CreatedAt, user.UpdatedAt, user.LastLoginAt),
		},
	}
	if summary.CompletedTransactions > 0 {
		out.Spending.AverageTransaction = summary.TotalSpent.
			Div(decimal.NewFromInt(summary.CompletedTransactions)).
			Round(2)
	}

	out.Plans.TotalPlans = len(userPlans)
	for _, up := range userPlans {
		switch up.Status {
		case enums.UserPlanStatusActive, enums.UserPlanStatusExpiringSoon:
			out.Plans.ActivePlans++
		case enums.UserPlanStatusExpired:
			out.Plans.ExpiredPlans++
		case enums.UserPlanStatusCancelled:
			out.Plans.CancelledPlans++
		}
	}
	return out, nil
}

func monthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func lastActivity(created, updated time.Time, lastLogin *time.Time) time.Time {
	latest := created
	if updated.After(latest) {
		latest = updated
	}
	if lastLogin != nil && lastLogin.After(latest) {
		latest = *lastLogin
	}
	return latest
}
