package controllers

import (
	"net/http"

	"github.com/subhub/telecom-subscriptions/api/responses"
	"github.com/subhub/telecom-subscriptions/api/validators"
	"github.com/subhub/telecom-subscriptions/internal/payments"
	"github.com/subhub/telecom-subscriptions/internal/subscriptions"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	"github.com/subhub/telecom-subscriptions/pkg/logger"
)

// SubscribeRequest is the body of POST /subscriptions.
type SubscribeRequest struct {
	PlanID        string               `json:"plan_id" validate:"required,uuid"`
	PaymentMethod string               `json:"payment_method" validate:"required"`
	CardDetails   *payments.CardDetails `json:"card_details,omitempty"`
	AutoRenewal   *bool                `json:"auto_renewal,omitempty"`
}

// RenewRequest is the body of POST /subscriptions/{userPlanId}/renew.
type RenewRequest struct {
	PaymentMethod string               `json:"payment_method" validate:"required"`
	CardDetails   *payments.CardDetails `json:"card_details,omitempty"`
}

func cardOrEmpty(card *payments.CardDetails) payments.CardDetails {
	if card == nil {
		return payments.CardDetails{}
	}
	return *card
}

// SubscriptionCreate charges the caller and activates a plan.
func SubscriptionCreate(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("subscriptions"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body SubscribeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		planID, err := parseUUIDField("plan_id", body.PlanID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := parsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Subscribe(r.Context(), subscriptions.SubscribeInput{
			UserID:        userID,
			PlanID:        planID,
			PaymentMethod: method,
			Card:          cardOrEmpty(body.CardDetails),
			AutoRenewal:   body.AutoRenewal,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusCreated, "Successfully subscribed to plan", result)
	}
}

func SubscriptionList(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("subscriptions"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListUserPlans(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"subscriptions": rows, "count": len(rows)})
	}
}

// SubscriptionCurrent returns the caller's most recent active plan. A caller
// with none gets a null subscription and a message instead of a 404.
func SubscriptionCurrent(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("subscriptions"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		current, err := svc.GetCurrentPlan(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if current == nil {
			responses.WriteMessage(w, http.StatusOK, "No active subscription", nil)
			return
		}
		responses.WriteSuccess(w, current)
	}
}

func SubscriptionRenew(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("subscriptions"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userPlanID, err := validators.ParseUUIDParam(r, "userPlanId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body RenewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := parsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Renew(r.Context(), subscriptions.RenewInput{
			UserID:        userID,
			UserPlanID:    userPlanID,
			PaymentMethod: method,
			Card:          cardOrEmpty(body.CardDetails),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Subscription renewed successfully", result)
	}
}

func SubscriptionCancel(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("subscriptions"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userPlanID, err := validators.ParseUUIDParam(r, "userPlanId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		plan, err := svc.Cancel(r.Context(), userID, userPlanID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Subscription cancelled successfully", plan)
	}
}

func SubscriptionToggleAutoRenewal(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("subscriptions"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userPlanID, err := validators.ParseUUIDParam(r, "userPlanId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		plan, err := svc.ToggleAutoRenewal(r.Context(), userID, userPlanID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state := "disabled"
		if plan.AutoRenewal {
			state = "enabled"
		}
		responses.WriteMessage(w, http.StatusOK, "Auto-renewal "+state, plan)
	}
}

func parsePaymentMethod(raw string) (enums.PaymentMethod, error) {
	method, err := enums.ParsePaymentMethod(raw)
	if err != nil {
		return "", invalidField("payment_method", err)
	}
	return method, nil
}
