package dashboard

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/subhub/telecom-subscriptions/internal/ledger"
	"github.com/subhub/telecom-subscriptions/internal/subscriptions"
)

// UserInfo is the account header shown on the dashboard.
type UserInfo struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	MemberSince time.Time `json:"member_since"`
}

// Statistics aggregates a user's spending and plans.
type Statistics struct {
	TotalSpent        decimal.Decimal `json:"total_spent"`
	TotalTransactions int64           `json:"total_transactions"`
	ActivePlans       int             `json:"active_plans"`
}

// ExpiringPlan is a plan whose renewal falls inside the expiring-soon window.
type ExpiringPlan struct {
	ID               uuid.UUID       `json:"id"`
	PlanName         string          `json:"plan_name"`
	RenewalDate      time.Time       `json:"renewal_date"`
	DaysUntilRenewal int             `json:"days_until_renewal"`
	Price            decimal.Decimal `json:"price"`
}

// Dashboard is the single-call home screen payload.
type Dashboard struct {
	User           UserInfo                   `json:"user"`
	CurrentPlan    *subscriptions.UserPlanDTO `json:"current_plan"`
	Statistics     Statistics                 `json:"statistics"`
	ExpiringPlans  []ExpiringPlan             `json:"expiring_plans"`
	RecentActivity []ledger.TransactionDTO    `json:"recent_activity"`
}

// NotificationType is the severity shown by clients.
type NotificationType string

const (
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Notification is a derived, unpersisted alert.
type Notification struct {
	ID         string           `json:"id"`
	Type       NotificationType `json:"type"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	ActionURL  string           `json:"action_url"`
	ActionText string           `json:"action_text"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NotificationList wraps notifications with their count.
type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	Count         int            `json:"count"`
}

// SpendingStats totals completed charges. Refunds are excluded.
type SpendingStats struct {
	TotalSpent         decimal.Decimal `json:"total_spent"`
	MonthlySpent       decimal.Decimal `json:"monthly_spent"`
	AverageTransaction decimal.Decimal `json:"average_transaction"`
}

// PlanStats counts user plans by live status.
type PlanStats struct {
	TotalPlans     int `json:"total_plans"`
	ActivePlans    int `json:"active_plans"`
	ExpiredPlans   int `json:"expired_plans"`
	CancelledPlans int `json:"cancelled_plans"`
}

type PaymentStats struct {
	TotalTransactions  int64   `json:"total_transactions"`
	SuccessfulPayments int64   `json:"successful_payments"`
	FailedPayments     int64   `json:"failed_payments"`
	SuccessRate        float64 `json:"success_rate"`
}

type AccountStats struct {
	MemberSince    time.Time `json:"member_since"`
	AccountAgeDays int       `json:"account_age_days"`
	LastActivity   time.Time `json:"last_activity"`
}

// UserStats is the account statistics view.
type UserStats struct {
	Spending SpendingStats `json:"spending"`
	Plans    PlanStats     `json:"plans"`
	Payments PaymentStats  `json:"payments"`
	Account  AccountStats  `json:"account"`
}

// ActivityType filters the activity feed.
type ActivityType string

const (
	ActivityTransaction ActivityType = "transaction"
	ActivityPlan        ActivityType = "plan"
)

// ActivityQuery selects the feed entries to return. A blank Type returns both kinds.
type ActivityQuery struct {
	Type  ActivityType
	Limit int
}

// ActivityEntry is one line of the activity feed.
type ActivityEntry struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      string       `json:"status"`
	Timestamp   time.Time    `json:"timestamp"`
	Details     any          `json:"details"`
}

type ActivityFeed struct {
	Activities []ActivityEntry `json:"activities"`
	Count      int             `json:"count"`
}
