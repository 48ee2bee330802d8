package plans

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
)

// PlanDTO is the public projection of a catalog plan.
type PlanDTO struct {
	ID          uuid.UUID          `json:"id"`
	Slug        string             `json:"slug"`
	Name        string             `json:"name"`
	Category    enums.PlanCategory `json:"category"`
	Price       decimal.Decimal    `json:"price"`
	Currency    string             `json:"currency"`
	Features    []string           `json:"features"`
	Description string             `json:"description"`
	IsPopular   bool               `json:"is_popular"`
	IsAvailable bool               `json:"is_available"`
	CreatedAt   time.Time          `json:"created_at"`
}

// PlanDetailsDTO adds subscription statistics to a plan.
type PlanDetailsDTO struct {
	PlanDTO
	SubscriberCount int64           `json:"subscriber_count"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
}

// CategoryCount summarises available plans per category.
type CategoryCount struct {
	Name        enums.PlanCategory `json:"name"`
	DisplayName string             `json:"display_name"`
	Count       int64              `json:"count"`
}

// CreatePlanInput is the admin payload for a new plan.
type CreatePlanInput struct {
	Name        string             `json:"name" validate:"required,min=3,max=100"`
	Category    enums.PlanCategory `json:"category" validate:"required,enum"`
	Price       decimal.Decimal    `json:"price"`
	Currency    string             `json:"currency" validate:"omitempty,len=3"`
	Features    []string           `json:"features" validate:"omitempty,dive,required,max=120"`
	Description string             `json:"description" validate:"omitempty,max=500"`
	IsPopular   bool               `json:"is_popular"`
	IsAvailable *bool              `json:"is_available"`
}

// UpdatePlanInput carries the admin-editable plan fields. Nil fields are left alone.
type UpdatePlanInput struct {
	Name        *string          `json:"name" validate:"omitempty,min=3,max=100"`
	Price       *decimal.Decimal `json:"price"`
	Features    *[]string        `json:"features" validate:"omitempty,dive,required,max=120"`
	Description *string          `json:"description" validate:"omitempty,max=500"`
	IsPopular   *bool            `json:"is_popular"`
	IsAvailable *bool            `json:"is_available"`
}

// FromModel maps a plan model onto its DTO.
func FromModel(m models.Plan) PlanDTO {
	features := []string(m.Features)
	if features == nil {
		features = []string{}
	}
	return PlanDTO{
		ID:          m.ID,
		Slug:        m.Slug,
		Name:        m.Name,
		Category:    m.Category,
		Price:       m.Price,
		Currency:    m.Currency,
		Features:    features,
		Description: m.Description,
		IsPopular:   m.IsPopular,
		IsAvailable: m.IsAvailable,
		CreatedAt:   m.CreatedAt,
	}
}

// FromModels maps a slice of plan models.
func FromModels(rows []models.Plan) []PlanDTO {
	out := make([]PlanDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}
