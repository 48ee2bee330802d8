package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/subhub/telecom-subscriptions/api/responses"
	"github.com/subhub/telecom-subscriptions/api/validators"
	"github.com/subhub/telecom-subscriptions/internal/ledger"
	"github.com/subhub/telecom-subscriptions/internal/payments"
	"github.com/subhub/telecom-subscriptions/internal/subscriptions"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	"github.com/subhub/telecom-subscriptions/pkg/logger"
	"github.com/subhub/telecom-subscriptions/pkg/pagination"
)

const maxRefundReasonLength = 255

// RefundRequest is the optional body of a refund call.
type RefundRequest struct {
	Reason string `json:"reason"`
}

// ChargeRequest is the body of POST /payments/process.
type ChargeRequest struct {
	PlanID        string                `json:"plan_id" validate:"required,uuid"`
	PaymentMethod string                `json:"payment_method" validate:"required"`
	CardDetails   *payments.CardDetails `json:"card_details,omitempty"`
}

// RetryRequest overrides the payment method of a retried transaction.
type RetryRequest struct {
	PaymentMethod string               `json:"payment_method,omitempty"`
	CardDetails   *payments.CardDetails `json:"card_details,omitempty"`
}

func PaymentMethods(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{"payment_methods": payments.Methods()})
	}
}

// PaymentValidateCard runs card checks without charging anything.
func PaymentValidateCard(now func() time.Time, logg *logger.Logger) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var card payments.CardDetails
		if err := validators.DecodeJSONBody(r, &card); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payments.ValidateCard(card, now()))
	}
}

// PaymentHistory pages the caller's transactions newest first.
func PaymentHistory(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payments"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := ledger.HistoryQuery{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseTransactionStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, invalidField("status", err))
				return
			}
			query.Status = &status
		}

		history, err := svc.PaymentHistory(r.Context(), userID, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}

func PaymentSummary(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payments"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.PaymentSummary(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func PaymentTransaction(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payments"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txnID, err := validators.ParseUUIDParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txn, err := svc.GetTransaction(r.Context(), userID, txnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}

// PaymentRefund reverses a completed payment and cancels the plan it bought.
func PaymentRefund(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payments"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txnID, err := validators.ParseUUIDParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body RefundRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.Refund(r.Context(), subscriptions.RefundInput{
			UserID:        userID,
			TransactionID: txnID,
			Reason:        validators.SanitizeString(body.Reason, maxRefundReasonLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Refund processed successfully", result)
	}
}

// PaymentRetry re-attempts a failed payment, optionally with a new method.
func PaymentRetry(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payments"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txnID, err := validators.ParseUUIDParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body RetryRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		input := subscriptions.RetryInput{
			UserID:        userID,
			TransactionID: txnID,
			Card:          cardOrEmpty(body.CardDetails),
		}
		if strings.TrimSpace(body.PaymentMethod) != "" {
			method, err := parsePaymentMethod(strings.TrimSpace(body.PaymentMethod))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.PaymentMethod = method
		}

		result, err := svc.RetryPayment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Payment retried successfully", result)
	}
}

// PaymentProcess charges for a plan without activating it.
func PaymentProcess(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("payments"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body ChargeRequest
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

		result, err := svc.ProcessPayment(r.Context(), subscriptions.ChargeInput{
			UserID:        userID,
			PlanID:        planID,
			PaymentMethod: method,
			Card:          cardOrEmpty(body.CardDetails),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusCreated, "Payment processed successfully", result)
	}
}
