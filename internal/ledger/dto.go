package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
)

// TransactionDTO is the public projection of a ledger row.
type TransactionDTO struct {
	ID                   uuid.UUID               `json:"id"`
	UserID               uuid.UUID               `json:"user_id"`
	PlanID               uuid.UUID               `json:"plan_id"`
	PlanName             string                  `json:"plan_name,omitempty"`
	UserPlanID           *uuid.UUID              `json:"user_plan_id,omitempty"`
	RefundOfID           *uuid.UUID              `json:"refund_of_id,omitempty"`
	Amount               decimal.Decimal         `json:"amount"`
	Currency             string                  `json:"currency"`
	PaymentMethod        enums.PaymentMethod     `json:"payment_method"`
	Status               enums.TransactionStatus `json:"status"`
	FailureReason        *string                 `json:"failure_reason,omitempty"`
	TransactionReference *string                 `json:"transaction_reference,omitempty"`
	CreatedAt            time.Time               `json:"created_at"`
	UpdatedAt            time.Time               `json:"updated_at"`
}

// SummaryDTO is the public projection of Summary.
type SummaryDTO struct {
	TotalTransactions     int64            `json:"total_transactions"`
	CompletedTransactions int64            `json:"completed_transactions"`
	FailedTransactions    int64            `json:"failed_transactions"`
	TotalSpent            decimal.Decimal  `json:"total_spent"`
	SuccessRate           float64          `json:"success_rate"`
	RecentTransactions    []TransactionDTO `json:"recent_transactions"`
}

// HistoryDTO is one page of payment history.
type HistoryDTO struct {
	Transactions []TransactionDTO `json:"transactions"`
	Count        int              `json:"count"`
	NextCursor   string           `json:"next_cursor,omitempty"`
}

// FromModel maps a transaction model onto its DTO.
func FromModel(m models.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:                   m.ID,
		UserID:               m.UserID,
		PlanID:               m.PlanID,
		UserPlanID:           m.UserPlanID,
		RefundOfID:           m.RefundOfID,
		Amount:               m.Amount,
		Currency:             m.Currency,
		PaymentMethod:        m.PaymentMethod,
		Status:               m.Status,
		FailureReason:        m.FailureReason,
		TransactionReference: m.TransactionReference,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
	if m.Plan != nil {
		dto.PlanName = m.Plan.Name
	}
	return dto
}

// FromModels maps a slice of transaction models.
func FromModels(rows []models.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

// SummaryFromDomain maps a Summary onto its DTO.
func SummaryFromDomain(s Summary) SummaryDTO {
	return SummaryDTO{
		TotalTransactions:     s.Total,
		CompletedTransactions: s.Completed,
		FailedTransactions:    s.Failed,
		TotalSpent:            s.TotalSpent,
		SuccessRate:           s.SuccessRate,
		RecentTransactions:    FromModels(s.Recent),
	}
}

// HistoryFromPage maps a HistoryPage onto its DTO.
func HistoryFromPage(p HistoryPage) HistoryDTO {
	txns := FromModels(p.Transactions)
	return HistoryDTO{Transactions: txns, Count: len(txns), NextCursor: p.NextCursor}
}
