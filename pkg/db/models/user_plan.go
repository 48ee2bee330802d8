package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	"gorm.io/gorm"
)

// UserPlan binds a user to a plan for a billing period. Category is copied from
// the plan so the one-active-per-category index can be enforced in storage.
type UserPlan struct {
	ID             uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	PlanID         uuid.UUID            `gorm:"column:plan_id;type:uuid;not null;index"`
	Category       enums.PlanCategory   `gorm:"column:category;not null"`
	ActivationDate time.Time            `gorm:"column:activation_date;not null"`
	RenewalDate    time.Time            `gorm:"column:renewal_date;not null"`
	Status         enums.UserPlanStatus `gorm:"column:status;not null;default:'active'"`
	AutoRenewal    bool                 `gorm:"column:auto_renewal;not null"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`

	Plan *Plan `gorm:"foreignKey:PlanID"`
}

func (UserPlan) TableName() string { return "user_plans" }

func (p *UserPlan) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
