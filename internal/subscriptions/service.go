package subscriptions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/subhub/telecom-subscriptions/internal/ledger"
	"github.com/subhub/telecom-subscriptions/internal/payments"
	"github.com/subhub/telecom-subscriptions/internal/plans"
	"github.com/subhub/telecom-subscriptions/internal/users"
	"github.com/subhub/telecom-subscriptions/pkg/config"
	pkgdb "github.com/subhub/telecom-subscriptions/pkg/db"
	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	pkgerrors "github.com/subhub/telecom-subscriptions/pkg/errors"
	"github.com/subhub/telecom-subscriptions/pkg/logger"
	"github.com/subhub/telecom-subscriptions/pkg/metrics"
	"gorm.io/gorm"
)

// DefaultRefundReason is recorded when a refund request carries no reason.
const DefaultRefundReason = "User requested refund"

const (
	commandSubscribe   = "subscribe"
	commandRenew       = "renew"
	commandCancel      = "cancel"
	commandToggle      = "toggle_auto_renewal"
	commandRefund      = "refund"
	commandRetry       = "retry_payment"
	commandCharge      = "process_payment"
	commandClose       = "close_account"
	activeCategoryHint = "an active plan already exists in this category"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type commandRecorder interface {
	ObserveCommand(command, outcome string, duration time.Duration)
	AddSettled(currency string, amount float64)
}

// Service owns the user plan lifecycle and the payments that drive it.
type Service interface {
	Subscribe(ctx context.Context, input SubscribeInput) (*CommandResult, error)
	Renew(ctx context.Context, input RenewInput) (*CommandResult, error)
	Cancel(ctx context.Context, userID, userPlanID uuid.UUID) (*UserPlanDTO, error)
	ToggleAutoRenewal(ctx context.Context, userID, userPlanID uuid.UUID) (*UserPlanDTO, error)
	Refund(ctx context.Context, input RefundInput) (*RefundResult, error)
	RetryPayment(ctx context.Context, input RetryInput) (*CommandResult, error)
	ProcessPayment(ctx context.Context, input ChargeInput) (*CommandResult, error)
	CloseAccount(ctx context.Context, userID uuid.UUID) (*AccountClosure, error)

	ListUserPlans(ctx context.Context, userID uuid.UUID) ([]UserPlanDTO, error)
	GetCurrentPlan(ctx context.Context, userID uuid.UUID) (*UserPlanDTO, error)
	ActivePlans(ctx context.Context, userID uuid.UUID) ([]UserPlanDTO, error)
	PaymentHistory(ctx context.Context, userID uuid.UUID, query ledger.HistoryQuery) (*ledger.HistoryDTO, error)
	PaymentSummary(ctx context.Context, userID uuid.UUID) (*ledger.SummaryDTO, error)
	GetTransaction(ctx context.Context, userID, txnID uuid.UUID) (*ledger.TransactionDTO, error)
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	TransactionRunner txRunner
	Repo              Repository
	Users             *users.Repository
	Plans             plans.Repository
	Ledger            ledger.Service
	Gateway           payments.Gateway
	Billing           config.BillingConfig
	Metrics           commandRecorder
	Logger            *logger.Logger
	Now               func() time.Time
}

type service struct {
	tx      txRunner
	repo    Repository
	users   *users.Repository
	plans   plans.Repository
	ledger  ledger.Service
	gateway payments.Gateway
	billing config.BillingConfig
	metrics commandRecorder
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds a subscription service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user plan repository required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repository required")
	}
	if params.Plans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plans repository required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger service required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		tx:      params.TransactionRunner,
		repo:    params.Repo,
		users:   params.Users,
		plans:   params.Plans,
		ledger:  params.Ledger,
		gateway: params.Gateway,
		billing: params.Billing,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
	}, nil
}

func (s *service) Subscribe(ctx context.Context, input SubscribeInput) (result *CommandResult, err error) {
	defer s.observe(commandSubscribe, time.Now(), &err)

	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	var (
		rejection error
		settled   *models.Transaction
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		plan, err := plans.ResolveByID(ctx, s.plans.WithTx(tx), input.PlanID)
		if err != nil {
			return err
		}
		if err := s.lockUser(ctx, tx, input.UserID); err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		existing, err := repo.ActiveInCategory(ctx, input.UserID, plan.Category, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check active plans")
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, activeCategoryHint).
				WithDetails(map[string]any{"category": plan.Category, "user_plan_id": existing.ID})
		}

		ledgerTx := s.ledger.WithTx(tx)
		outcome, err := s.charge(ctx, ledgerTx, chargeRequest{
			userID:   input.UserID,
			planID:   plan.ID,
			amount:   plan.Price,
			currency: plan.Currency,
			method:   input.PaymentMethod,
			card:     input.Card,
		})
		if err != nil {
			return err
		}
		if outcome.rejected() {
			rejection = rejectedError(outcome, plan)
			return nil
		}

		now := s.now()
		autoRenewal := true
		if input.AutoRenewal != nil {
			autoRenewal = *input.AutoRenewal
		}
		userPlan := &models.UserPlan{
			UserID:         input.UserID,
			PlanID:         plan.ID,
			Category:       plan.Category,
			ActivationDate: now,
			RenewalDate:    now.Add(s.billing.Period()),
			Status:         enums.UserPlanStatusActive,
			AutoRenewal:    autoRenewal,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := repo.Create(ctx, userPlan); err != nil {
			if pkgdb.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, activeCategoryHint)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user plan")
		}
		if err := ledgerTx.LinkUserPlan(ctx, outcome.txn, userPlan.ID); err != nil {
			return err
		}

		userPlan.Plan = plan
		dto := s.toDTO(*userPlan)
		result = &CommandResult{UserPlan: &dto, Transaction: transactionDTO(outcome.txn, plan)}
		settled = outcome.txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		return nil, rejection
	}
	s.recordSettled(settled)
	return result, nil
}

func (s *service) Renew(ctx context.Context, input RenewInput) (result *CommandResult, err error) {
	defer s.observe(commandRenew, time.Now(), &err)

	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	var (
		rejection error
		settled   *models.Transaction
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.lockUser(ctx, tx, input.UserID); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		userPlan, err := repo.LockForUser(ctx, input.UserID, input.UserPlanID)
		if err != nil {
			return userPlanNotFoundOr(err, "load user plan")
		}
		// Hidden plans stay renewable for the users already on them.
		plan, err := s.plans.WithTx(tx).FindByID(ctx, userPlan.PlanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load plan")
		}

		if userPlan.Status == enums.UserPlanStatusCancelled {
			other, err := repo.ActiveInCategory(ctx, input.UserID, userPlan.Category, &userPlan.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check active plans")
			}
			if other != nil {
				return pkgerrors.New(pkgerrors.CodeConflict, activeCategoryHint).
					WithDetails(map[string]any{"category": userPlan.Category, "user_plan_id": other.ID})
			}
		}

		ledgerTx := s.ledger.WithTx(tx)
		userPlanID := userPlan.ID
		outcome, err := s.charge(ctx, ledgerTx, chargeRequest{
			userID:     input.UserID,
			planID:     plan.ID,
			userPlanID: &userPlanID,
			amount:     plan.Price,
			currency:   plan.Currency,
			method:     input.PaymentMethod,
			card:       input.Card,
		})
		if err != nil {
			return err
		}
		if outcome.rejected() {
			rejection = rejectedError(outcome, plan)
			return nil
		}

		now := s.now()
		if err := repo.Update(ctx, userPlan.ID, map[string]any{
			"renewal_date": NextRenewal(userPlan.RenewalDate, now, s.billing.Period()),
			"status":       enums.UserPlanStatusActive,
			"updated_at":   now,
		}); err != nil {
			if pkgdb.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, activeCategoryHint)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "renew user plan")
		}

		renewed, err := repo.FindForUser(ctx, input.UserID, userPlan.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload user plan")
		}
		dto := s.toDTO(*renewed)
		result = &CommandResult{UserPlan: &dto, Transaction: transactionDTO(outcome.txn, plan)}
		settled = outcome.txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		return nil, rejection
	}
	s.recordSettled(settled)
	return result, nil
}

func (s *service) Cancel(ctx context.Context, userID, userPlanID uuid.UUID) (result *UserPlanDTO, err error) {
	defer s.observe(commandCancel, time.Now(), &err)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		userPlan, err := repo.LockForUser(ctx, userID, userPlanID)
		if err != nil {
			return userPlanNotFoundOr(err, "load user plan")
		}
		if userPlan.Status == enums.UserPlanStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeAlreadyCancelled, "plan is already cancelled")
		}
		if err := repo.Update(ctx, userPlan.ID, map[string]any{
			"status":       enums.UserPlanStatusCancelled,
			"auto_renewal": false,
			"updated_at":   s.now(),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel user plan")
		}
		result, err = s.reload(ctx, repo, userID, userPlan.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ToggleAutoRenewal(ctx context.Context, userID, userPlanID uuid.UUID) (result *UserPlanDTO, err error) {
	defer s.observe(commandToggle, time.Now(), &err)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		userPlan, err := repo.LockForUser(ctx, userID, userPlanID)
		if err != nil {
			return userPlanNotFoundOr(err, "load user plan")
		}
		if err := repo.Update(ctx, userPlan.ID, map[string]any{
			"auto_renewal": !userPlan.AutoRenewal,
			"updated_at":   s.now(),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggle auto renewal")
		}
		result, err = s.reload(ctx, repo, userID, userPlan.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Refund(ctx context.Context, input RefundInput) (result *RefundResult, err error) {
	defer s.observe(commandRefund, time.Now(), &err)

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = DefaultRefundReason
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledgerTx := s.ledger.WithTx(tx)
		original, err := ledgerTx.Lock(ctx, input.UserID, input.TransactionID)
		if err != nil {
			return err
		}
		refund, err := ledgerTx.Refund(ctx, original)
		if err != nil {
			return err
		}

		plan, err := s.plans.WithTx(tx).FindByID(ctx, original.PlanID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load refunded plan")
		}

		repo := s.repo.WithTx(tx)
		target, err := s.refundTarget(ctx, repo, original)
		if err != nil {
			return err
		}

		result = &RefundResult{
			Refund:   *transactionDTO(refund, plan),
			Original: *transactionDTO(original, plan),
			Reason:   reason,
		}
		if target == nil || target.Status != enums.UserPlanStatusActive {
			return nil
		}
		if err := repo.Update(ctx, target.ID, map[string]any{
			"status":       enums.UserPlanStatusCancelled,
			"auto_renewal": false,
			"updated_at":   s.now(),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel refunded user plan")
		}
		result.CancelledUserPlan, err = s.reload(ctx, repo, input.UserID, target.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"transaction_id": input.TransactionID.String(),
			"refund_id":      result.Refund.ID.String(),
			"reason":         reason,
		})
		s.logg.Info(logCtx, "subscriptions.refund.processed")
	}
	return result, nil
}

func (s *service) RetryPayment(ctx context.Context, input RetryInput) (result *CommandResult, err error) {
	defer s.observe(commandRetry, time.Now(), &err)

	var (
		rejection error
		settled   *models.Transaction
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledgerTx := s.ledger.WithTx(tx)
		original, err := ledgerTx.Lock(ctx, input.UserID, input.TransactionID)
		if err != nil {
			return err
		}
		if original.Status != enums.TransactionStatusFailed {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "only failed transactions can be retried").
				WithDetails(map[string]any{"status": original.Status})
		}

		method := input.PaymentMethod
		if method == "" {
			method = original.PaymentMethod
		}
		if !method.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
		}

		plan, err := s.plans.WithTx(tx).FindByID(ctx, original.PlanID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load plan")
		}

		outcome, err := s.charge(ctx, ledgerTx, chargeRequest{
			userID:   input.UserID,
			planID:   original.PlanID,
			amount:   original.Amount,
			currency: original.Currency,
			method:   method,
			card:     input.Card,
		})
		if err != nil {
			return err
		}
		if outcome.rejected() {
			rejection = rejectedError(outcome, plan)
			return nil
		}
		result = &CommandResult{Transaction: transactionDTO(outcome.txn, plan)}
		settled = outcome.txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		return nil, rejection
	}
	s.recordSettled(settled)
	return result, nil
}

// ProcessPayment charges the price of an available plan and records the
// outcome. No user plan is created or extended.
func (s *service) ProcessPayment(ctx context.Context, input ChargeInput) (result *CommandResult, err error) {
	defer s.observe(commandCharge, time.Now(), &err)

	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	var (
		rejection error
		settled   *models.Transaction
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		plan, err := plans.ResolveByID(ctx, s.plans.WithTx(tx), input.PlanID)
		if err != nil {
			return err
		}
		if err := s.lockUser(ctx, tx, input.UserID); err != nil {
			return err
		}
		outcome, err := s.charge(ctx, s.ledger.WithTx(tx), chargeRequest{
			userID:   input.UserID,
			planID:   plan.ID,
			amount:   plan.Price,
			currency: plan.Currency,
			method:   input.PaymentMethod,
			card:     input.Card,
		})
		if err != nil {
			return err
		}
		if outcome.rejected() {
			rejection = rejectedError(outcome, plan)
			return nil
		}
		result = &CommandResult{Transaction: transactionDTO(outcome.txn, plan)}
		settled = outcome.txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		return nil, rejection
	}
	s.recordSettled(settled)
	return result, nil
}

// CloseAccount cancels every active plan and deactivates the user in one
// transaction. Closing an already inactive account is a no-op.
func (s *service) CloseAccount(ctx context.Context, userID uuid.UUID) (result *AccountClosure, err error) {
	defer s.observe(commandClose, time.Now(), &err)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		usersTx := s.users.WithTx(tx)
		user, err := usersTx.LockByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock user")
		}

		cancelled, err := s.repo.WithTx(tx).CancelAllActive(ctx, userID, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel active plans")
		}
		if user.IsActive {
			if err := usersTx.SetActive(ctx, userID, false); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate user")
			}
		}
		result = &AccountClosure{CancelledPlans: cancelled}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, userID.String()), map[string]any{
			"cancelled_plans": result.CancelledPlans,
		})
		s.logg.Info(logCtx, "subscriptions.account.closed")
	}
	return result, nil
}

func (s *service) ListUserPlans(ctx context.Context, userID uuid.UUID) ([]UserPlanDTO, error) {
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list user plans")
	}
	return s.toDTOs(rows), nil
}

func (s *service) GetCurrentPlan(ctx context.Context, userID uuid.UUID) (*UserPlanDTO, error) {
	row, err := s.repo.Current(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load current plan")
	}
	if row == nil {
		return nil, nil
	}
	dto := s.toDTO(*row)
	return &dto, nil
}

func (s *service) ActivePlans(ctx context.Context, userID uuid.UUID) ([]UserPlanDTO, error) {
	rows, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list active plans")
	}
	return s.toDTOs(rows), nil
}

func (s *service) PaymentHistory(ctx context.Context, userID uuid.UUID, query ledger.HistoryQuery) (*ledger.HistoryDTO, error) {
	page, err := s.ledger.History(ctx, userID, query)
	if err != nil {
		return nil, err
	}
	dto := ledger.HistoryFromPage(*page)
	return &dto, nil
}

func (s *service) PaymentSummary(ctx context.Context, userID uuid.UUID) (*ledger.SummaryDTO, error) {
	summary, err := s.ledger.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := ledger.SummaryFromDomain(*summary)
	return &dto, nil
}

func (s *service) GetTransaction(ctx context.Context, userID, txnID uuid.UUID) (*ledger.TransactionDTO, error) {
	txn, err := s.ledger.Get(ctx, userID, txnID)
	if err != nil {
		return nil, err
	}
	dto := ledger.FromModel(*txn)
	return &dto, nil
}

type chargeRequest struct {
	userID     uuid.UUID
	planID     uuid.UUID
	userPlanID *uuid.UUID
	amount     decimal.Decimal
	currency   string
	method     enums.PaymentMethod
	card       payments.CardDetails
}

type chargeOutcome struct {
	txn    *models.Transaction
	reason string
}

func (o chargeOutcome) rejected() bool {
	return o.reason != ""
}

// charge opens a pending transaction and settles it from card validation and
// the gateway verdict. Declines are settled as failed and reported through
// the outcome, not as an error, so the caller can commit them.
func (s *service) charge(ctx context.Context, ledgerTx ledger.Service, req chargeRequest) (chargeOutcome, error) {
	currency := req.currency
	if currency == "" {
		currency = s.billing.Currency
	}
	txn, err := ledgerTx.Open(ctx, ledger.OpenInput{
		UserID:     req.userID,
		PlanID:     req.planID,
		UserPlanID: req.userPlanID,
		Amount:     req.amount,
		Currency:   currency,
		Method:     req.method,
	})
	if err != nil {
		return chargeOutcome{}, err
	}

	if req.method.RequiresCard() {
		validation := payments.ValidateForPayment(req.card, s.now())
		if !validation.Valid {
			if err := ledgerTx.SettleFailure(ctx, txn, validation.Reason()); err != nil {
				return chargeOutcome{}, err
			}
			return chargeOutcome{txn: txn, reason: validation.Reason()}, nil
		}
	}

	auth, err := s.gateway.Authorize(ctx, payments.AuthorizeRequest{
		CardNumber: req.card.Number,
		Amount:     req.amount,
		Currency:   txn.Currency,
	})
	if err != nil {
		return chargeOutcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "authorize payment")
	}
	if !auth.Approved {
		if err := ledgerTx.SettleFailure(ctx, txn, auth.Reason); err != nil {
			return chargeOutcome{}, err
		}
		return chargeOutcome{txn: txn, reason: auth.Reason}, nil
	}

	if err := ledgerTx.SettleSuccess(ctx, txn, auth.GatewayReference); err != nil {
		return chargeOutcome{}, err
	}
	return chargeOutcome{txn: txn}, nil
}

func rejectedError(outcome chargeOutcome, plan *models.Plan) error {
	return pkgerrors.New(pkgerrors.CodePaymentRejected, outcome.reason).
		WithDetails(RejectionDetails{Reason: outcome.reason, Transaction: *transactionDTO(outcome.txn, plan)})
}

func (s *service) lockUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	if _, err := s.users.WithTx(tx).LockByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock user")
	}
	return nil
}

func (s *service) refundTarget(ctx context.Context, repo Repository, original *models.Transaction) (*models.UserPlan, error) {
	if original.UserPlanID != nil {
		target, err := repo.FindByID(ctx, *original.UserPlanID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load refunded user plan")
		}
		return target, nil
	}
	target, err := repo.LatestForPlan(ctx, original.UserID, original.PlanID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load refunded user plan")
	}
	return target, nil
}

func (s *service) reload(ctx context.Context, repo Repository, userID, id uuid.UUID) (*UserPlanDTO, error) {
	row, err := repo.FindForUser(ctx, userID, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload user plan")
	}
	dto := s.toDTO(*row)
	return &dto, nil
}

func (s *service) toDTOs(rows []models.UserPlan) []UserPlanDTO {
	out := make([]UserPlanDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.toDTO(row))
	}
	return out
}

// observe records the command outcome. A misbehaving sink is contained here.
func (s *service) observe(command string, started time.Time, err *error) {
	if s.metrics == nil {
		return
	}
	defer func() { _ = recover() }()

	outcome := metrics.OutcomeSuccess
	if err != nil && *err != nil {
		outcome = metrics.OutcomeError
		if pkgerrors.IsCode(*err, pkgerrors.CodePaymentRejected) {
			outcome = metrics.OutcomeRejected
		}
	}
	s.metrics.ObserveCommand(command, outcome, time.Since(started))
}

func (s *service) recordSettled(txn *models.Transaction) {
	if s.metrics == nil || txn == nil {
		return
	}
	defer func() { _ = recover() }()
	s.metrics.AddSettled(txn.Currency, txn.Amount.InexactFloat64())
}

func userPlanNotFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user plan not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
