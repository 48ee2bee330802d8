package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/subhub/telecom-subscriptions/internal/ledger"
	"github.com/subhub/telecom-subscriptions/internal/subscriptions"
	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	pkgerrors "github.com/subhub/telecom-subscriptions/pkg/errors"
	"gorm.io/gorm"
)

const (
	failedPaymentLookback = 7 * 24 * time.Hour
	failedPaymentScan     = 50
)

// Service assembles read-only home screen views for a user.
type Service interface {
	Dashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error)
	Notifications(ctx context.Context, userID uuid.UUID) (*NotificationList, error)
	Stats(ctx context.Context, userID uuid.UUID) (*UserStats, error)
	Activity(ctx context.Context, userID uuid.UUID, query ActivityQuery) (*ActivityFeed, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type subscriptionReader interface {
	ListUserPlans(ctx context.Context, userID uuid.UUID) ([]subscriptions.UserPlanDTO, error)
	GetCurrentPlan(ctx context.Context, userID uuid.UUID) (*subscriptions.UserPlanDTO, error)
	PaymentSummary(ctx context.Context, userID uuid.UUID) (*ledger.SummaryDTO, error)
	PaymentHistory(ctx context.Context, userID uuid.UUID, query ledger.HistoryQuery) (*ledger.HistoryDTO, error)
}

type spendReader interface {
	SpentSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error)
}

// ServiceParams groups dashboard dependencies.
type ServiceParams struct {
	Users         userLookup
	Subscriptions subscriptionReader
	Spending      spendReader
	Now           func() time.Time
}

type service struct {
	users    userLookup
	subs     subscriptionReader
	spending spendReader
	now      func() time.Time
}

// NewService builds the dashboard service.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repository required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription service required")
	}
	if params.Spending == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{users: params.Users, subs: params.Subscriptions, spending: params.Spending, now: now}, nil
}

func (s *service) Dashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	current, err := s.subs.GetCurrentPlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	userPlans, err := s.subs.ListUserPlans(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary, err := s.subs.PaymentSummary(ctx, userID)
	if err != nil {
		return nil, err
	}

	active := 0
	expiring := make([]ExpiringPlan, 0)
	for _, up := range userPlans {
		if up.Status == enums.UserPlanStatusCancelled {
			continue
		}
		active++
		if up.Status != enums.UserPlanStatusExpiringSoon {
			continue
		}
		entry := ExpiringPlan{
			ID:               up.ID,
			RenewalDate:      up.RenewalDate,
			DaysUntilRenewal: up.DaysUntilRenewal,
		}
		if up.Plan != nil {
			entry.PlanName = up.Plan.Name
			entry.Price = up.Plan.Price
		}
		expiring = append(expiring, entry)
	}

	return &Dashboard{
		User: UserInfo{
			Name:        user.FullName(),
			Email:       user.Email,
			MemberSince: user.CreatedAt,
		},
		CurrentPlan: current,
		Statistics: Statistics{
			TotalSpent:        summary.TotalSpent,
			TotalTransactions: summary.CompletedTransactions,
			ActivePlans:       active,
		},
		ExpiringPlans:  expiring,
		RecentActivity: summary.RecentTransactions,
	}, nil
}

func (s *service) Notifications(ctx context.Context, userID uuid.UUID) (*NotificationList, error) {
	if _, err := s.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	now := s.now()

	userPlans, err := s.subs.ListUserPlans(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]Notification, 0)
	for _, up := range userPlans {
		name := planName(up)
		switch up.Status {
		case enums.UserPlanStatusExpiringSoon:
			out = append(out, Notification{
				ID:         "expiring_" + up.ID.String(),
				Type:       NotificationWarning,
				Title:      "Plan Expiring Soon",
				Message:    fmt.Sprintf("Your %s plan expires in %d days", name, up.DaysUntilRenewal),
				ActionURL:  "/plans/renew/" + up.ID.String(),
				ActionText: "Renew Now",
				CreatedAt:  now,
			})
		case enums.UserPlanStatusExpired:
			out = append(out, Notification{
				ID:         "expired_" + up.ID.String(),
				Type:       NotificationError,
				Title:      "Plan Expired",
				Message:    fmt.Sprintf("Your %s plan has expired", name),
				ActionURL:  "/plans/renew/" + up.ID.String(),
				ActionText: "Renew Now",
				CreatedAt:  now,
			})
		}
	}

	failed := enums.TransactionStatusFailed
	history, err := s.subs.PaymentHistory(ctx, userID, ledger.HistoryQuery{Status: &failed, Limit: failedPaymentScan})
	if err != nil {
		return nil, err
	}
	since := now.Add(-failedPaymentLookback)
	for _, txn := range history.Transactions {
		if txn.CreatedAt.Before(since) {
			continue
		}
		reason := ""
		if txn.FailureReason != nil {
			reason = *txn.FailureReason
		}
		out = append(out, Notification{
			ID:         "failed_payment_" + txn.ID.String(),
			Type:       NotificationError,
			Title:      "Payment Failed",
			Message:    fmt.Sprintf("Payment of ₹%s failed: %s", txn.Amount.StringFixed(2), reason),
			ActionURL:  "/payments/retry/" + txn.ID.String(),
			ActionText: "Retry Payment",
			CreatedAt:  txn.CreatedAt,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return &NotificationList{Notifications: out, Count: len(out)}, nil
}

func (s *service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return user, nil
}

func planName(up subscriptions.UserPlanDTO) string {
	if up.Plan == nil {
		return "subscription"
	}
	return up.Plan.Name
}
