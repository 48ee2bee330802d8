package dbtest

import (
	"testing"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	dbtypes "github.com/subhub/telecom-subscriptions/pkg/db/types"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	"gorm.io/gorm"
)

// PlanFixture describes a plan row for tests. Zero fields get defaults.
type PlanFixture struct {
	Name        string
	Category    enums.PlanCategory
	Price       int64
	Popular     bool
	Unavailable bool
	Description string
	Features    []string
}

// CreateUser inserts a customer with a placeholder password hash.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "User",
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreatePlan inserts a plan described by f.
func CreatePlan(t testing.TB, db *gorm.DB, f PlanFixture) *models.Plan {
	t.Helper()

	if f.Name == "" {
		f.Name = "Plan"
	}
	if f.Category == "" {
		f.Category = enums.PlanCategoryMobile
	}
	features := f.Features
	if features == nil {
		features = []string{"Unlimited Calls"}
	}
	plan := &models.Plan{
		Slug:        slug.Make(f.Name),
		Name:        f.Name,
		Category:    f.Category,
		Price:       decimal.NewFromInt(f.Price),
		Currency:    "INR",
		Features:    dbtypes.StringList(features),
		Description: f.Description,
		IsPopular:   f.Popular,
		IsAvailable: !f.Unavailable,
	}
	require.NoError(t, db.Create(plan).Error)
	return plan
}
