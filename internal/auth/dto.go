package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/subhub/telecom-subscriptions/internal/subscriptions"
	"github.com/subhub/telecom-subscriptions/internal/users"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
)

const tokenTypeBearer = "Bearer"

// MinPasswordLength is the shortest password accepted at registration and on change.
const MinPasswordLength = 6

// RegisterRequest captures the sign-up payload.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=80"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Phone     string `json:"phone" validate:"required,indian_phone"`
}

// LoginRequest accepts either a username or an email as the identifier.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token paired with the caller's access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UpdateProfileRequest lists the editable profile fields; omitted fields are unchanged.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=50"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=50"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,indian_phone"`
}

// ChangePasswordRequest swaps the stored credential after verifying the current one.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// DeleteAccountRequest re-confirms the caller's password before closing the account.
type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// CurrentPlanSummary is the compact plan view embedded in profiles.
type CurrentPlanSummary struct {
	ID             uuid.UUID            `json:"id"`
	PlanID         uuid.UUID            `json:"plan_id"`
	PlanName       string               `json:"plan_name"`
	ActivationDate time.Time            `json:"activation_date"`
	RenewalDate    time.Time            `json:"renewal_date"`
	Status         enums.UserPlanStatus `json:"status"`
	AutoRenewal    bool                 `json:"auto_renewal"`
	Price          decimal.Decimal      `json:"price"`
}

// Profile is a user together with their current plan.
type Profile struct {
	users.UserDTO
	CurrentPlan *CurrentPlanSummary `json:"current_plan"`
}

// TokenResponse is returned by register, login, and refresh.
type TokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	User         *Profile `json:"user,omitempty"`
}

// VerifyResponse confirms the caller's token maps to an active user.
type VerifyResponse struct {
	Valid  bool      `json:"valid"`
	UserID uuid.UUID `json:"user_id"`
}

func summarizePlan(up *subscriptions.UserPlanDTO) *CurrentPlanSummary {
	if up == nil {
		return nil
	}
	summary := &CurrentPlanSummary{
		ID:             up.ID,
		PlanID:         up.PlanID,
		ActivationDate: up.ActivationDate,
		RenewalDate:    up.RenewalDate,
		Status:         up.Status,
		AutoRenewal:    up.AutoRenewal,
	}
	if up.Plan != nil {
		summary.PlanName = up.Plan.Name
		summary.Price = up.Plan.Price
	}
	return summary
}
