package users

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
)

// UserDTO is the public account shape. Credentials never leave the repo.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Username    string         `json:"username"`
	Email       string         `json:"email"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	FullName    string         `json:"full_name"`
	Phone       *string        `json:"phone,omitempty"`
	Role        enums.UserRole `json:"role"`
	IsActive    bool           `json:"is_active"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreateUserDTO is a new account. Role defaults to customer and IsActive
// to true.
type CreateUserDTO struct {
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	Role         enums.UserRole
	IsActive     *bool
}

// ProfilePatch lists the self-service profile fields. Nil leaves a field
// unchanged.
type ProfilePatch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
}

func (p ProfilePatch) columns() map[string]any {
	cols := map[string]any{}
	set := func(name string, v *string, clean func(string) string) {
		if v != nil {
			cols[name] = clean(*v)
		}
	}
	set("first_name", p.FirstName, strings.TrimSpace)
	set("last_name", p.LastName, strings.TrimSpace)
	set("email", p.Email, fold)
	set("phone", p.Phone, strings.TrimSpace)
	if len(cols) > 0 {
		cols["updated_at"] = time.Now().UTC()
	}
	return cols
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	dto := UserDTO{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	dto.FullName = u.FullName()
	return &dto
}

func (c CreateUserDTO) ToModel() *models.User {
	user := &models.User{
		Username:     strings.TrimSpace(c.Username),
		Email:        fold(c.Email),
		PasswordHash: c.PasswordHash,
		FirstName:    strings.TrimSpace(c.FirstName),
		LastName:     strings.TrimSpace(c.LastName),
		Phone:        c.Phone,
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	if c.Role != "" {
		user.Role = c.Role
	}
	if c.IsActive != nil {
		user.IsActive = *c.IsActive
	}
	return user
}
