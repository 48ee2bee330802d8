package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	pkgerrors "github.com/subhub/telecom-subscriptions/pkg/errors"
	"github.com/subhub/telecom-subscriptions/pkg/pagination"
	"gorm.io/gorm"
)

const (
	refundReferencePrefix = "REFUND_"
	recentTransactions    = 5
)

// Service records payment attempts and their outcomes.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Open(ctx context.Context, input OpenInput) (*models.Transaction, error)
	SettleSuccess(ctx context.Context, txn *models.Transaction, reference string) error
	SettleFailure(ctx context.Context, txn *models.Transaction, reason string) error
	LinkUserPlan(ctx context.Context, txn *models.Transaction, userPlanID uuid.UUID) error
	Refund(ctx context.Context, original *models.Transaction) (*models.Transaction, error)
	Get(ctx context.Context, userID, txnID uuid.UUID) (*models.Transaction, error)
	Lock(ctx context.Context, userID, txnID uuid.UUID) (*models.Transaction, error)
	History(ctx context.Context, userID uuid.UUID, query HistoryQuery) (*HistoryPage, error)
	Summary(ctx context.Context, userID uuid.UUID) (*Summary, error)
	SpentSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.Transaction, error)
	ExpirePending(ctx context.Context, txnID uuid.UUID, reason string) (bool, error)
}

// OpenInput captures the immutable data a pending transaction requires.
type OpenInput struct {
	UserID     uuid.UUID
	PlanID     uuid.UUID
	UserPlanID *uuid.UUID
	Amount     decimal.Decimal
	Currency   string
	Method     enums.PaymentMethod
}

// HistoryQuery filters and pages a user's transactions.
type HistoryQuery struct {
	Status *enums.TransactionStatus
	Limit  int
	Cursor string
}

// HistoryPage is one page of transactions, newest first.
type HistoryPage struct {
	Transactions []models.Transaction
	NextCursor   string
}

// Summary aggregates a user's payment activity.
type Summary struct {
	Total       int64
	Completed   int64
	Failed      int64
	TotalSpent  decimal.Decimal
	SuccessRate float64
	Recent      []models.Transaction
}

// ServiceParams groups dependencies for the ledger service.
type ServiceParams struct {
	Repo Repository
	Now  func() time.Time
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a ledger service with the provided repository.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repository required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: params.Repo, now: now}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx), now: s.now}
}

func (s *service) Open(ctx context.Context, input OpenInput) (*models.Transaction, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.PlanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}

	now := s.now()
	txn := &models.Transaction{
		UserID:        input.UserID,
		PlanID:        input.PlanID,
		UserPlanID:    input.UserPlanID,
		Amount:        input.Amount,
		Currency:      currencyOrDefault(input.Currency),
		PaymentMethod: input.Method,
		Status:        enums.TransactionStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "open transaction")
	}
	return txn, nil
}

func (s *service) SettleSuccess(ctx context.Context, txn *models.Transaction, reference string) error {
	if txn == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	now := s.now()
	ref := strings.TrimSpace(reference)
	if err := s.transition(ctx, txn, enums.TransactionStatusCompleted, map[string]any{
		"status":                enums.TransactionStatusCompleted,
		"transaction_reference": ref,
		"updated_at":            now,
	}); err != nil {
		return err
	}
	txn.Status = enums.TransactionStatusCompleted
	txn.TransactionReference = &ref
	txn.UpdatedAt = now
	return nil
}

func (s *service) SettleFailure(ctx context.Context, txn *models.Transaction, reason string) error {
	if txn == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	now := s.now()
	if err := s.transition(ctx, txn, enums.TransactionStatusFailed, map[string]any{
		"status":         enums.TransactionStatusFailed,
		"failure_reason": reason,
		"updated_at":     now,
	}); err != nil {
		return err
	}
	txn.Status = enums.TransactionStatusFailed
	txn.FailureReason = &reason
	txn.UpdatedAt = now
	return nil
}

func (s *service) LinkUserPlan(ctx context.Context, txn *models.Transaction, userPlanID uuid.UUID) error {
	if txn == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if err := s.repo.SetUserPlan(ctx, txn.ID, userPlanID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link transaction to user plan")
	}
	txn.UserPlanID = &userPlanID
	return nil
}

// Refund writes the negative completed row and moves the original to refunded.
func (s *service) Refund(ctx context.Context, original *models.Transaction) (*models.Transaction, error) {
	if original == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if original.Status != enums.TransactionStatusCompleted || original.RefundOfID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "only completed transactions can be refunded").
			WithDetails(map[string]any{"status": original.Status})
	}

	now := s.now()
	if err := s.transition(ctx, original, enums.TransactionStatusRefunded, map[string]any{
		"status":     enums.TransactionStatusRefunded,
		"updated_at": now,
	}); err != nil {
		return nil, err
	}
	original.Status = enums.TransactionStatusRefunded
	original.UpdatedAt = now

	reference := refundReferencePrefix
	if original.TransactionReference != nil {
		reference += *original.TransactionReference
	}
	originalID := original.ID
	refund := &models.Transaction{
		UserID:               original.UserID,
		PlanID:               original.PlanID,
		UserPlanID:           original.UserPlanID,
		RefundOfID:           &originalID,
		Amount:               original.Amount.Neg(),
		Currency:             original.Currency,
		PaymentMethod:        original.PaymentMethod,
		Status:               enums.TransactionStatusCompleted,
		TransactionReference: &reference,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.repo.Create(ctx, refund); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create refund transaction")
	}
	return refund, nil
}

func (s *service) Get(ctx context.Context, userID, txnID uuid.UUID) (*models.Transaction, error) {
	txn, err := s.repo.FindForUser(ctx, userID, txnID)
	if err != nil {
		return nil, notFoundOr(err, "load transaction")
	}
	return txn, nil
}

func (s *service) Lock(ctx context.Context, userID, txnID uuid.UUID) (*models.Transaction, error) {
	txn, err := s.repo.LockForUser(ctx, userID, txnID)
	if err != nil {
		return nil, notFoundOr(err, "lock transaction")
	}
	return txn, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, query HistoryQuery) (*HistoryPage, error) {
	cursor, err := pagination.ParseCursor(query.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListForUser(ctx, userID, query.Status, cursor, pagination.LimitWithBuffer(query.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}
	page, next := pagination.Page(rows, query.Limit, func(t models.Transaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	return &HistoryPage{Transactions: page, NextCursor: next}, nil
}

func (s *service) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	counts, err := s.repo.CountByStatus(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count transactions")
	}
	summary := &Summary{TotalSpent: decimal.Zero}
	for _, c := range counts {
		summary.Total += c.Count
		switch c.Status {
		case enums.TransactionStatusCompleted:
			summary.Completed = c.Count
		case enums.TransactionStatusFailed:
			summary.Failed = c.Count
		}
	}
	if summary.Total > 0 {
		summary.SuccessRate = float64(summary.Completed) / float64(summary.Total) * 100
	}

	summary.TotalSpent, err = s.repo.SumCompleted(ctx, userID, time.Time{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum completed transactions")
	}

	summary.Recent, err = s.repo.ListForUser(ctx, userID, nil, nil, recentTransactions)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list recent transactions")
	}
	return summary, nil
}

func (s *service) SpentSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	total, err := s.repo.SumCompleted(ctx, userID, since)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum completed transactions")
	}
	return total, nil
}

func (s *service) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.Transaction, error) {
	rows, err := s.repo.ListStalePending(ctx, olderThan, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stale pending transactions")
	}
	return rows, nil
}

// ExpirePending fails a transaction that is still pending. It reports false when
// the transaction settled in the meantime.
func (s *service) ExpirePending(ctx context.Context, txnID uuid.UUID, reason string) (bool, error) {
	ok, err := s.repo.Transition(ctx, txnID, enums.TransactionStatusPending, map[string]any{
		"status":         enums.TransactionStatusFailed,
		"failure_reason": reason,
		"updated_at":     s.now(),
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "expire pending transaction")
	}
	return ok, nil
}

func (s *service) transition(ctx context.Context, txn *models.Transaction, next enums.TransactionStatus, updates map[string]any) error {
	if !txn.Status.CanTransitionTo(next) {
		return pkgerrors.New(pkgerrors.CodeInvalidState, "illegal transaction status change").
			WithDetails(map[string]any{"from": txn.Status, "to": next})
	}
	ok, err := s.repo.Transition(ctx, txn.ID, txn.Status, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update transaction status")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "transaction status changed concurrently")
	}
	return nil
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}

func currencyOrDefault(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return "INR"
	}
	return currency
}
