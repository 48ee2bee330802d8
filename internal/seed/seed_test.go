package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/subhub/telecom-subscriptions/internal/ledger"
	"github.com/subhub/telecom-subscriptions/internal/plans"
	"github.com/subhub/telecom-subscriptions/internal/subscriptions"
	"github.com/subhub/telecom-subscriptions/internal/users"
	"github.com/subhub/telecom-subscriptions/pkg/config"
	pkgdb "github.com/subhub/telecom-subscriptions/pkg/db"
	"github.com/subhub/telecom-subscriptions/pkg/db/dbtest"
	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	"github.com/subhub/telecom-subscriptions/pkg/security"
	"gorm.io/gorm"
)

var seedNow = time.Date(2026, time.July, 1, 8, 0, 0, 0, time.UTC)

func newTestSeeder(t *testing.T) (*Seeder, *gorm.DB) {
	t.Helper()
	db := dbtest.NewSQLite(t)
	seeder, err := NewSeeder(SeederParams{
		TransactionRunner: pkgdb.NewFromGorm(db),
		Users:             users.NewRepository(db),
		Plans:             plans.NewRepository(db),
		UserPlans:         subscriptions.NewRepository(db),
		Ledger:            ledger.NewRepository(db),
		PasswordConfig:    config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1},
		Billing:           config.BillingConfig{Currency: "INR", PeriodDays: 30, ExpiringSoonDays: 7},
		Now:               func() time.Time { return seedNow },
	})
	require.NoError(t, err)
	return seeder, db
}

func TestNewSeederRequiresDependencies(t *testing.T) {
	_, err := NewSeeder(SeederParams{})
	require.Error(t, err)
}

func TestSeedPopulatesCatalogAndUsers(t *testing.T) {
	seeder, db := newTestSeeder(t)
	ctx := context.Background()

	result, err := seeder.Seed(ctx, Options{})
	require.NoError(t, err)
	require.Equal(t, &Result{UsersCreated: 3, PlansCreated: 8, SubscriptionsCreated: 2}, result)

	var popular []models.Plan
	require.NoError(t, db.Where("is_popular = ?", true).Order("price ASC").Find(&popular).Error)
	require.Len(t, popular, 3)
	require.Equal(t, "premium-mobile-plan", popular[0].Slug)
	require.Equal(t, "fiber-premium-internet", popular[1].Slug)
	require.Equal(t, "family-bundle", popular[2].Slug)

	var john models.User
	require.NoError(t, db.First(&john, "username = ?", "john.doe").Error)
	ok, err := security.VerifyPassword("password123", john.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, john.IsActive)

	var testPlan models.UserPlan
	require.NoError(t, db.Joins("JOIN users ON users.id = user_plans.user_id").
		Where("users.username = ?", "test.user").First(&testPlan).Error)
	require.False(t, testPlan.AutoRenewal)
	require.True(t, testPlan.RenewalDate.Equal(seedNow.Add(3*day)))
	require.Equal(t, enums.PlanCategoryInternet, testPlan.Category)

	var johnPlan models.UserPlan
	require.NoError(t, db.First(&johnPlan, "user_id = ?", john.ID).Error)
	require.True(t, johnPlan.RenewalDate.Equal(seedNow.Add(-15*day).Add(30*day)))

	var txns []models.Transaction
	require.NoError(t, db.Find(&txns).Error)
	require.Len(t, txns, 2)
	for _, txn := range txns {
		require.Equal(t, enums.TransactionStatusCompleted, txn.Status)
		require.NotNil(t, txn.UserPlanID)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	seeder, _ := newTestSeeder(t)
	ctx := context.Background()

	_, err := seeder.Seed(ctx, Options{})
	require.NoError(t, err)

	again, err := seeder.Seed(ctx, Options{})
	require.NoError(t, err)
	require.Equal(t, &Result{}, again)

	skipped, err := seeder.Seed(ctx, Options{IfEmpty: true})
	require.NoError(t, err)
	require.True(t, skipped.Skipped)
}
