package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	dbtypes "github.com/subhub/telecom-subscriptions/pkg/db/types"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	"gorm.io/gorm"
)

// Plan is a purchasable catalog offering. Plans are never hard-deleted.
type Plan struct {
	ID          uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Slug        string             `gorm:"column:slug;not null;uniqueIndex"`
	Name        string             `gorm:"column:name;not null"`
	Category    enums.PlanCategory `gorm:"column:category;not null;index"`
	Price       decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null"`
	Currency    string             `gorm:"column:currency;not null;default:'INR'"`
	Features    dbtypes.StringList `gorm:"column:features;type:jsonb;not null"`
	Description string             `gorm:"column:description"`
	IsPopular   bool               `gorm:"column:is_popular;not null"`
	IsAvailable bool               `gorm:"column:is_available;not null"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Plan) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
