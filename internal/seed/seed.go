package seed

import (
	"context"
	"errors"
	"time"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/subhub/telecom-subscriptions/internal/ledger"
	"github.com/subhub/telecom-subscriptions/internal/plans"
	"github.com/subhub/telecom-subscriptions/internal/subscriptions"
	"github.com/subhub/telecom-subscriptions/internal/users"
	"github.com/subhub/telecom-subscriptions/pkg/config"
	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	dbtypes "github.com/subhub/telecom-subscriptions/pkg/db/types"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	pkgerrors "github.com/subhub/telecom-subscriptions/pkg/errors"
	"github.com/subhub/telecom-subscriptions/pkg/logger"
	"github.com/subhub/telecom-subscriptions/pkg/security"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Options controls a seed run.
type Options struct {
	// IfEmpty skips the run entirely when any user already exists.
	IfEmpty bool
}

// Result reports what a seed run inserted.
type Result struct {
	Skipped              bool `json:"skipped"`
	UsersCreated         int  `json:"users_created"`
	PlansCreated         int  `json:"plans_created"`
	SubscriptionsCreated int  `json:"subscriptions_created"`
}

// SeederParams groups seeder dependencies.
type SeederParams struct {
	TransactionRunner txRunner
	Users             *users.Repository
	Plans             plans.Repository
	UserPlans         subscriptions.Repository
	Ledger            ledger.Repository
	PasswordConfig    config.PasswordConfig
	Billing           config.BillingConfig
	Logger            *logger.Logger
	Now               func() time.Time
}

// Seeder loads the demo catalog and sample accounts.
type Seeder struct {
	tx          txRunner
	users       *users.Repository
	plans       plans.Repository
	userPlans   subscriptions.Repository
	ledger      ledger.Repository
	passwordCfg config.PasswordConfig
	billing     config.BillingConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewSeeder validates dependencies and builds a Seeder.
func NewSeeder(params SeederParams) (*Seeder, error) {
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Users == nil || params.Plans == nil || params.UserPlans == nil || params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "seed repositories required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Seeder{
		tx:          params.TransactionRunner,
		users:       params.Users,
		plans:       params.Plans,
		userPlans:   params.UserPlans,
		ledger:      params.Ledger,
		passwordCfg: params.PasswordConfig,
		billing:     params.Billing,
		logg:        params.Logger,
		now:         now,
	}, nil
}

// Seed inserts missing catalog plans and sample users in one transaction.
// Existing rows are left untouched, so repeated runs are harmless.
func (s *Seeder) Seed(ctx context.Context, opts Options) (*Result, error) {
	if opts.IfEmpty {
		count, err := s.users.Count(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count users")
		}
		if count > 0 {
			if s.logg != nil {
				s.logg.Info(ctx, "seed.skipped.not_empty")
			}
			return &Result{Skipped: true}, nil
		}
	}

	hashes := make(map[string]string, len(Users))
	for _, u := range Users {
		hash, err := security.HashPassword(u.Password, s.passwordCfg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash seed password")
		}
		hashes[u.Username] = hash
	}

	result := &Result{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		result = &Result{}
		planRepo := s.plans.WithTx(tx)
		seededPlans := make(map[string]*models.Plan, len(Plans))
		for _, p := range Plans {
			plan, created, err := s.ensurePlan(ctx, planRepo, p)
			if err != nil {
				return err
			}
			if created {
				result.PlansCreated++
			}
			seededPlans[p.Name] = plan
		}

		userRepo := s.users.WithTx(tx)
		for _, u := range Users {
			usernameTaken, emailTaken, err := userRepo.Exists(ctx, u.Username, u.Email)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check seed user")
			}
			if usernameTaken || emailTaken {
				continue
			}
			phone := u.Phone
			user, err := userRepo.Create(ctx, users.CreateUserDTO{
				Username:     u.Username,
				Email:        u.Email,
				PasswordHash: hashes[u.Username],
				FirstName:    u.FirstName,
				LastName:     u.LastName,
				Phone:        &phone,
				Role:         u.Role,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create seed user")
			}
			result.UsersCreated++

			if u.Subscription == nil {
				continue
			}
			plan := seededPlans[u.Subscription.PlanName]
			if plan == nil {
				continue
			}
			if err := s.subscribe(ctx, tx, user, plan, *u.Subscription); err != nil {
				return err
			}
			result.SubscriptionsCreated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"users_created":         result.UsersCreated,
			"plans_created":         result.PlansCreated,
			"subscriptions_created": result.SubscriptionsCreated,
		})
		s.logg.Info(logCtx, "seed.completed")
	}
	return result, nil
}

func (s *Seeder) ensurePlan(ctx context.Context, repo plans.Repository, p PlanSeed) (*models.Plan, bool, error) {
	planSlug := slug.Make(p.Name)
	existing, err := repo.FindBySlug(ctx, planSlug)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup seed plan")
	}

	currency := s.billing.Currency
	if currency == "" {
		currency = "INR"
	}
	plan := &models.Plan{
		Slug:        planSlug,
		Name:        p.Name,
		Category:    p.Category,
		Price:       decimal.NewFromInt(p.Price),
		Currency:    currency,
		Features:    dbtypes.StringList(p.Features),
		Description: p.Description,
		IsPopular:   p.Popular,
		IsAvailable: true,
	}
	if err := repo.Create(ctx, plan); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create seed plan")
	}
	return plan, true, nil
}

func (s *Seeder) subscribe(ctx context.Context, tx *gorm.DB, user *models.User, plan *models.Plan, sub SubscriptionSeed) error {
	now := s.now()
	activation := now.Add(-sub.ActivatedAgo)
	renewal := activation.Add(s.billing.Period())
	if sub.RenewsIn != 0 {
		renewal = now.Add(sub.RenewsIn)
	}

	userPlan := &models.UserPlan{
		UserID:         user.ID,
		PlanID:         plan.ID,
		Category:       plan.Category,
		ActivationDate: activation,
		RenewalDate:    renewal,
		Status:         enums.UserPlanStatusActive,
		AutoRenewal:    sub.AutoRenewal,
		CreatedAt:      activation,
	}
	if err := s.userPlans.WithTx(tx).Create(ctx, userPlan); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create seed subscription")
	}

	reference := sub.Reference
	txn := &models.Transaction{
		UserID:               user.ID,
		PlanID:               plan.ID,
		UserPlanID:           &userPlan.ID,
		Amount:               plan.Price,
		Currency:             plan.Currency,
		PaymentMethod:        sub.Method,
		Status:               enums.TransactionStatusCompleted,
		TransactionReference: &reference,
		CreatedAt:            activation,
	}
	if err := s.ledger.WithTx(tx).Create(ctx, txn); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create seed transaction")
	}
	return nil
}
