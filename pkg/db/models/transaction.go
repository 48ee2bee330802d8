package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	"gorm.io/gorm"
)

// Transaction records a single payment attempt or refund. Refund rows carry a
// negative amount and point at the original through RefundOfID.
type Transaction struct {
	ID                   uuid.UUID               `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID               uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	PlanID               uuid.UUID               `gorm:"column:plan_id;type:uuid;not null;index"`
	UserPlanID           *uuid.UUID              `gorm:"column:user_plan_id;type:uuid"`
	RefundOfID           *uuid.UUID              `gorm:"column:refund_of_id;type:uuid"`
	Amount               decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency             string                  `gorm:"column:currency;not null;default:'INR'"`
	PaymentMethod        enums.PaymentMethod     `gorm:"column:payment_method;not null"`
	Status               enums.TransactionStatus `gorm:"column:status;not null;default:'pending'"`
	FailureReason        *string                 `gorm:"column:failure_reason"`
	TransactionReference *string                 `gorm:"column:transaction_reference"`
	CreatedAt            time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time               `gorm:"column:updated_at;autoUpdateTime"`

	Plan *Plan `gorm:"foreignKey:PlanID"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
