package subscriptions

import (
	"time"

	"github.com/google/uuid"
	"github.com/subhub/telecom-subscriptions/internal/ledger"
	"github.com/subhub/telecom-subscriptions/internal/payments"
	"github.com/subhub/telecom-subscriptions/internal/plans"
	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
)

// SubscribeInput starts a new plan for a user.
type SubscribeInput struct {
	UserID        uuid.UUID
	PlanID        uuid.UUID
	PaymentMethod enums.PaymentMethod
	Card          payments.CardDetails
	AutoRenewal   *bool
}

// RenewInput pays for another period of an existing user plan.
type RenewInput struct {
	UserID        uuid.UUID
	UserPlanID    uuid.UUID
	PaymentMethod enums.PaymentMethod
	Card          payments.CardDetails
}

// RefundInput reverses a completed payment.
type RefundInput struct {
	UserID        uuid.UUID
	TransactionID uuid.UUID
	Reason        string
}

// RetryInput re-attempts a failed payment. An empty PaymentMethod reuses the
// original transaction's method.
type RetryInput struct {
	UserID        uuid.UUID
	TransactionID uuid.UUID
	PaymentMethod enums.PaymentMethod
	Card          payments.CardDetails
}

// ChargeInput pays for a plan without starting or extending a user plan.
type ChargeInput struct {
	UserID        uuid.UUID
	PlanID        uuid.UUID
	PaymentMethod enums.PaymentMethod
	Card          payments.CardDetails
}

// AccountClosure reports what closing an account changed.
type AccountClosure struct {
	CancelledPlans int64 `json:"cancelled_plans"`
}

// UserPlanDTO is a user plan with its live status.
type UserPlanDTO struct {
	ID               uuid.UUID            `json:"id"`
	UserID           uuid.UUID            `json:"user_id"`
	PlanID           uuid.UUID            `json:"plan_id"`
	Category         enums.PlanCategory   `json:"category"`
	ActivationDate   time.Time            `json:"activation_date"`
	RenewalDate      time.Time            `json:"renewal_date"`
	Status           enums.UserPlanStatus `json:"status"`
	AutoRenewal      bool                 `json:"auto_renewal"`
	DaysUntilRenewal int                  `json:"days_until_renewal"`
	CreatedAt        time.Time            `json:"created_at"`
	Plan             *plans.PlanDTO       `json:"plan,omitempty"`
}

// CommandResult is returned by commands that touch a user plan and a payment.
type CommandResult struct {
	UserPlan    *UserPlanDTO           `json:"user_plan,omitempty"`
	Transaction *ledger.TransactionDTO `json:"transaction,omitempty"`
}

// RefundResult describes a processed refund.
type RefundResult struct {
	Refund            ledger.TransactionDTO `json:"refund_transaction"`
	Original          ledger.TransactionDTO `json:"original_transaction"`
	Reason            string                `json:"reason"`
	CancelledUserPlan *UserPlanDTO          `json:"cancelled_user_plan,omitempty"`
}

// RejectionDetails is attached to PaymentRejected errors.
type RejectionDetails struct {
	Reason      string                `json:"reason"`
	Transaction ledger.TransactionDTO `json:"transaction"`
}

func (s *service) toDTO(userPlan models.UserPlan) UserPlanDTO {
	now := s.now()
	dto := UserPlanDTO{
		ID:               userPlan.ID,
		UserID:           userPlan.UserID,
		PlanID:           userPlan.PlanID,
		Category:         userPlan.Category,
		ActivationDate:   userPlan.ActivationDate,
		RenewalDate:      userPlan.RenewalDate,
		Status:           DeriveStatus(userPlan, now, s.billing.ExpiringSoonWindow()),
		AutoRenewal:      userPlan.AutoRenewal,
		DaysUntilRenewal: DaysUntilRenewal(userPlan.RenewalDate, now),
		CreatedAt:        userPlan.CreatedAt,
	}
	if userPlan.Plan != nil {
		plan := plans.FromModel(*userPlan.Plan)
		dto.Plan = &plan
	}
	return dto
}

func transactionDTO(txn *models.Transaction, plan *models.Plan) *ledger.TransactionDTO {
	if txn == nil {
		return nil
	}
	dto := ledger.FromModel(*txn)
	if plan != nil && dto.PlanName == "" {
		dto.PlanName = plan.Name
	}
	return &dto
}
