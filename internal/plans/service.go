package plans

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/subhub/telecom-subscriptions/pkg/cache"
	pkgdb "github.com/subhub/telecom-subscriptions/pkg/db"
	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	dbtypes "github.com/subhub/telecom-subscriptions/pkg/db/types"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	pkgerrors "github.com/subhub/telecom-subscriptions/pkg/errors"
	"gorm.io/gorm"
)

const (
	defaultListCap           = 50
	defaultPopularLimit      = 10
	recommendSameCategory    = 3
	recommendOtherCategories = 2
	recommendFallback        = 5
)

// Service exposes the plan catalog.
type Service interface {
	List(ctx context.Context, filter ListFilter) ([]PlanDTO, error)
	Get(ctx context.Context, ref string) (*PlanDTO, error)
	Details(ctx context.Context, ref string) (*PlanDetailsDTO, error)
	Categories(ctx context.Context) ([]CategoryCount, error)
	Popular(ctx context.Context, limit int) ([]PlanDTO, error)
	Recommendations(ctx context.Context, current *PlanDTO) ([]PlanDTO, error)
	Create(ctx context.Context, input CreatePlanInput) (*PlanDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdatePlanInput) (*PlanDTO, error)
}

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	Repo            Repository
	Cache           cache.Cache
	ListCap         int
	DefaultCurrency string
}

type service struct {
	repo     Repository
	cache    cache.Cache
	listCap  int
	currency string
}

// NewService constructs the catalog service. A nil cache disables caching.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plans repository required")
	}
	c := params.Cache
	if c == nil {
		c = cache.Noop{}
	}
	listCap := params.ListCap
	if listCap <= 0 {
		listCap = defaultListCap
	}
	currency := strings.ToUpper(strings.TrimSpace(params.DefaultCurrency))
	if currency == "" {
		currency = "INR"
	}
	return &service{repo: params.Repo, cache: c, listCap: listCap, currency: currency}, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]PlanDTO, error) {
	category := ""
	if filter.Category != nil {
		category = filter.Category.String()
	}
	key := fmt.Sprintf("list:%s:%t:%s", category, filter.PopularOnly, strings.ToLower(strings.TrimSpace(filter.Search)))
	return cache.Remember(ctx, s.cache, key, func(ctx context.Context) ([]PlanDTO, error) {
		rows, err := s.repo.List(ctx, filter, s.listCap)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list plans")
		}
		return FromModels(rows), nil
	})
}

func (s *service) Get(ctx context.Context, ref string) (*PlanDTO, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	dto, err := cache.Remember(ctx, s.cache, "plan:"+strings.ToLower(ref), func(ctx context.Context) (PlanDTO, error) {
		plan, err := Resolve(ctx, s.repo, ref)
		if err != nil {
			return PlanDTO{}, err
		}
		return FromModel(*plan), nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *service) Details(ctx context.Context, ref string) (*PlanDetailsDTO, error) {
	plan, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	subscribers, err := s.repo.SubscriberCount(ctx, plan.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count plan subscribers")
	}
	revenue, err := s.repo.TotalRevenue(ctx, plan.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum plan revenue")
	}
	return &PlanDetailsDTO{
		PlanDTO:         *plan,
		SubscriberCount: subscribers,
		TotalRevenue:    revenue,
	}, nil
}

func (s *service) Categories(ctx context.Context) ([]CategoryCount, error) {
	return cache.Remember(ctx, s.cache, "categories", func(ctx context.Context) ([]CategoryCount, error) {
		totals, err := s.repo.CategoryTotals(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count plan categories")
		}
		out := make([]CategoryCount, 0, len(totals))
		for _, total := range totals {
			out = append(out, CategoryCount{
				Name:        total.Category,
				DisplayName: total.Category.DisplayName(),
				Count:       total.Count,
			})
		}
		return out, nil
	})
}

func (s *service) Popular(ctx context.Context, limit int) ([]PlanDTO, error) {
	if limit <= 0 {
		limit = defaultPopularLimit
	}
	if limit > s.listCap {
		limit = s.listCap
	}
	return cache.Remember(ctx, s.cache, "popular:"+strconv.Itoa(limit), func(ctx context.Context) ([]PlanDTO, error) {
		rows, err := s.repo.Popular(ctx, limit)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list popular plans")
		}
		return FromModels(rows), nil
	})
}

func (s *service) Recommendations(ctx context.Context, current *PlanDTO) ([]PlanDTO, error) {
	if current == nil {
		rows, err := s.repo.Popular(ctx, recommendFallback)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list popular plans")
		}
		return FromModels(rows), nil
	}

	base := models.Plan{ID: current.ID, Category: current.Category, Price: current.Price}
	upgrades, err := s.repo.PricierInCategory(ctx, base, recommendSameCategory)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list upgrade plans")
	}
	others, err := s.repo.PopularOutsideCategory(ctx, current.Category, recommendOtherCategories)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cross-category plans")
	}
	return append(FromModels(upgrades), FromModels(others)...), nil
}

func (s *service) Create(ctx context.Context, input CreatePlanInput) (*PlanDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan category")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}

	planSlug, err := s.uniqueSlug(ctx, name)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.currency
	}
	available := true
	if input.IsAvailable != nil {
		available = *input.IsAvailable
	}

	plan := &models.Plan{
		Slug:        planSlug,
		Name:        name,
		Category:    input.Category,
		Price:       input.Price.Round(2),
		Currency:    currency,
		Features:    dbtypes.StringList(trimAll(input.Features)),
		Description: strings.TrimSpace(input.Description),
		IsPopular:   input.IsPopular,
		IsAvailable: available,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "plan slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create plan")
	}

	s.invalidate(ctx)
	dto := FromModel(*plan)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdatePlanInput) (*PlanDTO, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		updates["name"] = name
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		updates["price"] = input.Price.Round(2)
	}
	if input.Features != nil {
		updates["features"] = dbtypes.StringList(trimAll(*input.Features))
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.IsPopular != nil {
		updates["is_popular"] = *input.IsPopular
	}
	if input.IsAvailable != nil {
		updates["is_available"] = *input.IsAvailable
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update plan")
	}

	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load plan")
	}

	s.invalidate(ctx)
	dto := FromModel(*plan)
	return &dto, nil
}

// invalidate drops cached catalog reads. A failure only delays freshness until TTL.
func (s *service) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx)
}

func (s *service) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "plan"
	}
	candidate := base
	for i := 2; ; i++ {
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check plan slug")
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// Resolve loads an available plan by UUID or slug using the given repository,
// which may be bound to a transaction.
func Resolve(ctx context.Context, repo Repository, ref string) (*models.Plan, error) {
	var (
		plan *models.Plan
		err  error
	)
	if id, parseErr := uuid.Parse(strings.TrimSpace(ref)); parseErr == nil {
		plan, err = repo.FindByID(ctx, id)
	} else {
		plan, err = repo.FindBySlug(ctx, ref)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load plan")
	}
	if !plan.IsAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	return plan, nil
}

// ResolveByID is Resolve for callers that already hold a plan UUID.
func ResolveByID(ctx context.Context, repo Repository, id uuid.UUID) (*models.Plan, error) {
	return Resolve(ctx, repo, id.String())
}

// ParseCategory converts an optional query value into a filter category.
func ParseCategory(value string) (*enums.PlanCategory, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	category, err := enums.ParsePlanCategory(strings.ToLower(value))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}
	return &category, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
