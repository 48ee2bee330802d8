package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/subhub/telecom-subscriptions/internal/plans"
	"github.com/subhub/telecom-subscriptions/internal/subscriptions"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	pkgerrors "github.com/subhub/telecom-subscriptions/pkg/errors"
)

type stubPlans struct {
	plans.Service

	filter      plans.ListFilter
	popularN    int
	recommendOn *plans.PlanDTO
	updateID    uuid.UUID
	created     plans.CreatePlanInput
}

func (s *stubPlans) List(_ context.Context, filter plans.ListFilter) ([]plans.PlanDTO, error) {
	s.filter = filter
	return []plans.PlanDTO{{Name: "Basic Mobile Plan"}}, nil
}

func (s *stubPlans) Popular(_ context.Context, limit int) ([]plans.PlanDTO, error) {
	s.popularN = limit
	return []plans.PlanDTO{}, nil
}

func (s *stubPlans) Details(_ context.Context, ref string) (*plans.PlanDetailsDTO, error) {
	if ref != "basic-mobile-plan" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	return &plans.PlanDetailsDTO{PlanDTO: plans.PlanDTO{Slug: ref}, SubscriberCount: 3}, nil
}

func (s *stubPlans) Recommendations(_ context.Context, current *plans.PlanDTO) ([]plans.PlanDTO, error) {
	s.recommendOn = current
	return []plans.PlanDTO{}, nil
}

func (s *stubPlans) Create(_ context.Context, input plans.CreatePlanInput) (*plans.PlanDTO, error) {
	s.created = input
	return &plans.PlanDTO{ID: uuid.New(), Name: input.Name, Category: input.Category, Price: input.Price}, nil
}

func (s *stubPlans) Update(_ context.Context, id uuid.UUID, _ plans.UpdatePlanInput) (*plans.PlanDTO, error) {
	s.updateID = id
	return &plans.PlanDTO{ID: id}, nil
}

func TestPlansListFilters(t *testing.T) {
	svc := &stubPlans{}
	rec := httptest.NewRecorder()
	PlansList(svc, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/api/v1/plans?category=internet&popular=true&search=%20fiber%20", "", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.filter.Category)
	require.Equal(t, enums.PlanCategoryInternet, *svc.filter.Category)
	require.True(t, svc.filter.PopularOnly)
	require.Equal(t, "fiber", svc.filter.Search)
}

func TestPlansListRejectsUnknownCategory(t *testing.T) {
	rec := httptest.NewRecorder()
	PlansList(&stubPlans{}, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/api/v1/plans?category=radio", "", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlansPopularLimit(t *testing.T) {
	svc := &stubPlans{}
	rec := httptest.NewRecorder()
	PlansPopular(svc, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/api/v1/plans/popular?limit=3", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 3, svc.popularN)
}

func TestPlanDetailNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	PlanDetail(&stubPlans{}, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/x", "", map[string]string{"planRef": "gold"}))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	PlanDetail(&stubPlans{}, nil).ServeHTTP(rec, newRequest(http.MethodGet, "/x", "", map[string]string{"planRef": "basic-mobile-plan"}))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPlanRecommendationsUsesCurrentPlan(t *testing.T) {
	current := &plans.PlanDTO{ID: uuid.New(), Category: enums.PlanCategoryMobile, Price: decimal.NewFromInt(299)}
	svc := &stubPlans{}
	subs := &stubSubscriptions{current: &subscriptions.UserPlanDTO{Plan: current}}

	rec := httptest.NewRecorder()
	PlanRecommendations(svc, subs, nil).ServeHTTP(rec, asUser(newRequest(http.MethodGet, "/api/v1/plans/recommendations", "", nil), uuid.New()))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, current, svc.recommendOn)

	svc = &stubPlans{}
	rec = httptest.NewRecorder()
	PlanRecommendations(svc, &stubSubscriptions{}, nil).ServeHTTP(rec, asUser(newRequest(http.MethodGet, "/api/v1/plans/recommendations", "", nil), uuid.New()))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, svc.recommendOn)
}

func TestAdminPlanCreateValidates(t *testing.T) {
	svc := &stubPlans{}
	rec := httptest.NewRecorder()
	AdminPlanCreate(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/admin/v1/plans", `{"name":"X","category":"radio"}`, nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	body := `{"name":"Family Bundle","category":"bundle","price":"1499.00","features":["TV","Internet"]}`
	AdminPlanCreate(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/admin/v1/plans", body, nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "Family Bundle", svc.created.Name)
	require.True(t, svc.created.Price.Equal(decimal.RequireFromString("1499")))
}

func TestAdminPlanUpdateParsesID(t *testing.T) {
	svc := &stubPlans{}
	id := uuid.New()
	rec := httptest.NewRecorder()
	AdminPlanUpdate(svc, nil).ServeHTTP(rec, newRequest(http.MethodPatch, "/x", `{"is_popular":true}`, map[string]string{"planId": id.String()}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, id, svc.updateID)
}
