package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/subhub/telecom-subscriptions/api/responses"
	"github.com/subhub/telecom-subscriptions/api/validators"
	"github.com/subhub/telecom-subscriptions/internal/plans"
	"github.com/subhub/telecom-subscriptions/internal/subscriptions"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	pkgerrors "github.com/subhub/telecom-subscriptions/pkg/errors"
	"github.com/subhub/telecom-subscriptions/pkg/logger"
)

const maxSearchLength = 100

type currentPlanReader interface {
	GetCurrentPlan(ctx context.Context, userID uuid.UUID) (*subscriptions.UserPlanDTO, error)
}

// PlansList returns available plans filtered by category, popularity and a
// name or description search.
func PlansList(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("plans"))
			return
		}

		filter := plans.ListFilter{
			Search: validators.SanitizeString(r.URL.Query().Get("search"), maxSearchLength),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			category, err := enums.ParsePlanCategory(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			filter.Category = &category
		}
		popular, err := validators.ParseQueryBool(r, "popular")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.PopularOnly = popular

		rows, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"plans": rows, "count": len(rows)})
	}
}

func PlanCategories(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("plans"))
			return
		}
		categories, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"categories": categories})
	}
}

func PlansPopular(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("plans"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.Popular(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"plans": rows, "count": len(rows)})
	}
}

// PlanDetail resolves a plan by id or slug and includes subscriber stats.
func PlanDetail(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("plans"))
			return
		}
		details, err := svc.Details(r.Context(), chi.URLParam(r, "planRef"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, details)
	}
}

// PlanRecommendations suggests upgrades for the caller's current plan, or the
// popular plans when they have none.
func PlanRecommendations(svc plans.Service, current currentPlanReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || current == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("plans"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userPlan, err := current.GetCurrentPlan(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var base *plans.PlanDTO
		if userPlan != nil {
			base = userPlan.Plan
		}

		rows, err := svc.Recommendations(r.Context(), base)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"recommendations": rows,
			"current_plan":    base,
		})
	}
}

// AdminPlanCreate adds a plan to the catalog.
func AdminPlanCreate(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("plans"))
			return
		}
		var body plans.CreatePlanInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		plan, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "plan_id", plan.ID.String()), "admin.plan.created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, plan)
	}
}

// AdminPlanUpdate edits price, availability, popularity or copy of a plan.
func AdminPlanUpdate(svc plans.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("plans"))
			return
		}
		planID, err := validators.ParseUUIDParam(r, "planId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body plans.UpdatePlanInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		plan, err := svc.Update(r.Context(), planID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "plan_id", plan.ID.String()), "admin.plan.updated")
		}
		responses.WriteSuccess(w, plan)
	}
}
