package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/subhub/telecom-subscriptions/pkg/db/dbtest"
	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	pkgerrors "github.com/subhub/telecom-subscriptions/pkg/errors"
	"gorm.io/gorm"
)

type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.now
	c.now = c.now.Add(c.step)
	return current
}

type fixture struct {
	db    *gorm.DB
	svc   Service
	clock *stepClock
	user  *models.User
	plan  *models.Plan
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := dbtest.NewSQLite(t)
	clock := &stepClock{now: time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC), step: time.Second}
	svc, err := NewService(ServiceParams{Repo: NewRepository(db), Now: clock.Now})
	require.NoError(t, err)
	return fixture{
		db:    db,
		svc:   svc,
		clock: clock,
		user:  dbtest.CreateUser(t, db, "john.doe"),
		plan:  dbtest.CreatePlan(t, db, dbtest.PlanFixture{Name: "Premium Mobile Plan", Price: 599}),
	}
}

func (f fixture) open(t *testing.T) *models.Transaction {
	t.Helper()
	txn, err := f.svc.Open(context.Background(), OpenInput{
		UserID:   f.user.ID,
		PlanID:   f.plan.ID,
		Amount:   f.plan.Price,
		Currency: "inr",
		Method:   enums.PaymentMethodCreditCard,
	})
	require.NoError(t, err)
	return txn
}

func TestNewServiceRequiresRepo(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error without repository")
	}
}

func TestOpenValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, OpenInput{PlanID: f.plan.ID, Method: enums.PaymentMethodUPI})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Open(ctx, OpenInput{UserID: f.user.ID, PlanID: f.plan.ID, Method: "cash"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Open(ctx, OpenInput{UserID: f.user.ID, PlanID: f.plan.ID, Method: enums.PaymentMethodUPI, Amount: decimal.NewFromInt(-1)})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestOpenAndSettleSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn := f.open(t)
	require.Equal(t, enums.TransactionStatusPending, txn.Status)
	require.Equal(t, "INR", txn.Currency)

	require.NoError(t, f.svc.SettleSuccess(ctx, txn, "GW_123456"))
	require.Equal(t, enums.TransactionStatusCompleted, txn.Status)

	stored, err := f.svc.Get(ctx, f.user.ID, txn.ID)
	require.NoError(t, err)
	require.Equal(t, enums.TransactionStatusCompleted, stored.Status)
	require.Equal(t, "GW_123456", *stored.TransactionReference)
	require.NotNil(t, stored.Plan)
	require.Equal(t, f.plan.Name, stored.Plan.Name)

	err = f.svc.SettleFailure(ctx, txn, "late decline")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))
}

func TestSettleFailureRecordsReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn := f.open(t)
	require.NoError(t, f.svc.SettleFailure(ctx, txn, "Card declined"))

	stored, err := f.svc.Get(ctx, f.user.ID, txn.ID)
	require.NoError(t, err)
	require.Equal(t, enums.TransactionStatusFailed, stored.Status)
	require.Equal(t, "Card declined", *stored.FailureReason)
}

func TestSettleDetectsConcurrentChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn := f.open(t)
	stale := *txn
	require.NoError(t, f.svc.SettleSuccess(ctx, txn, "GW_1"))

	err := f.svc.SettleFailure(ctx, &stale, "timeout")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn := f.open(t)
	require.NoError(t, f.svc.SettleSuccess(ctx, txn, "GW_654321"))

	refund, err := f.svc.Refund(ctx, txn)
	require.NoError(t, err)
	require.True(t, refund.Amount.Equal(decimal.NewFromInt(-599)))
	require.Equal(t, enums.TransactionStatusCompleted, refund.Status)
	require.Equal(t, "REFUND_GW_654321", *refund.TransactionReference)
	require.Equal(t, txn.ID, *refund.RefundOfID)

	original, err := f.svc.Get(ctx, f.user.ID, txn.ID)
	require.NoError(t, err)
	require.Equal(t, enums.TransactionStatusRefunded, original.Status)

	_, err = f.svc.Refund(ctx, original)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))

	_, err = f.svc.Refund(ctx, refund)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))
}

func TestRefundRejectsPendingAndFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.open(t)
	_, err := f.svc.Refund(ctx, pending)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))

	failed := f.open(t)
	require.NoError(t, f.svc.SettleFailure(ctx, failed, "Card declined"))
	_, err = f.svc.Refund(ctx, failed)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))
}

func TestGetIsOwnerScoped(t *testing.T) {
	f := newFixture(t)
	other := dbtest.CreateUser(t, f.db, "jane.smith")
	txn := f.open(t)

	_, err := f.svc.Get(context.Background(), other.ID, txn.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Get(context.Background(), f.user.ID, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestHistoryPagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		txn := f.open(t)
		if i%2 == 0 {
			require.NoError(t, f.svc.SettleSuccess(ctx, txn, "GW_1"))
		} else {
			require.NoError(t, f.svc.SettleFailure(ctx, txn, "Card declined"))
		}
		ids = append(ids, txn.ID)
	}

	first, err := f.svc.History(ctx, f.user.ID, HistoryQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Transactions, 2)
	require.Equal(t, ids[4], first.Transactions[0].ID)
	require.Equal(t, ids[3], first.Transactions[1].ID)
	require.NotEmpty(t, first.NextCursor)

	second, err := f.svc.History(ctx, f.user.ID, HistoryQuery{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Transactions, 2)
	require.Equal(t, ids[2], second.Transactions[0].ID)
	require.Equal(t, ids[1], second.Transactions[1].ID)

	third, err := f.svc.History(ctx, f.user.ID, HistoryQuery{Limit: 2, Cursor: second.NextCursor})
	require.NoError(t, err)
	require.Len(t, third.Transactions, 1)
	require.Empty(t, third.NextCursor)

	failed := enums.TransactionStatusFailed
	filtered, err := f.svc.History(ctx, f.user.ID, HistoryQuery{Status: &failed})
	require.NoError(t, err)
	require.Len(t, filtered.Transactions, 2)

	_, err = f.svc.History(ctx, f.user.ID, HistoryQuery{Cursor: "%%%"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.svc.Summary(ctx, f.user.ID)
	require.NoError(t, err)
	require.Zero(t, empty.Total)
	require.Zero(t, empty.SuccessRate)
	require.True(t, empty.TotalSpent.IsZero())

	for i := 0; i < 3; i++ {
		txn := f.open(t)
		require.NoError(t, f.svc.SettleSuccess(ctx, txn, "GW_1"))
	}
	failed := f.open(t)
	require.NoError(t, f.svc.SettleFailure(ctx, failed, "Card declined"))

	summary, err := f.svc.Summary(ctx, f.user.ID)
	require.NoError(t, err)
	require.EqualValues(t, 4, summary.Total)
	require.EqualValues(t, 3, summary.Completed)
	require.EqualValues(t, 1, summary.Failed)
	require.InDelta(t, 75.0, summary.SuccessRate, 0.001)
	require.True(t, summary.TotalSpent.Equal(decimal.NewFromInt(1797)), "got %s", summary.TotalSpent)
	require.Len(t, summary.Recent, 4)
	require.Equal(t, failed.ID, summary.Recent[0].ID)
}

func TestSpentSinceCountsCompletedChargesAfterCutoff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	early := f.open(t)
	require.NoError(t, f.svc.SettleSuccess(ctx, early, "GW_1"))
	cutoff := f.clock.Now()

	late := f.open(t)
	require.NoError(t, f.svc.SettleSuccess(ctx, late, "GW_2"))
	declined := f.open(t)
	require.NoError(t, f.svc.SettleFailure(ctx, declined, "Card declined"))
	_, err := f.svc.Refund(ctx, late)
	require.NoError(t, err)

	recent, err := f.svc.SpentSince(ctx, f.user.ID, cutoff)
	require.NoError(t, err)
	require.True(t, recent.IsZero(), "refunded charge must not count, got %s", recent)

	again := f.open(t)
	require.NoError(t, f.svc.SettleSuccess(ctx, again, "GW_3"))
	recent, err = f.svc.SpentSince(ctx, f.user.ID, cutoff)
	require.NoError(t, err)
	require.True(t, recent.Equal(decimal.NewFromInt(599)), "got %s", recent)

	all, err := f.svc.SpentSince(ctx, f.user.ID, time.Time{})
	require.NoError(t, err)
	require.True(t, all.Equal(decimal.NewFromInt(1198)), "got %s", all)
}

func TestExpirePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale := f.open(t)
	settled := f.open(t)
	require.NoError(t, f.svc.SettleSuccess(ctx, settled, "GW_1"))
	f.clock.now = f.clock.now.Add(time.Hour)
	fresh := f.open(t)

	rows, err := f.svc.ListStalePending(ctx, fresh.CreatedAt.Add(-30*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, stale.ID, rows[0].ID)

	ok, err := f.svc.ExpirePending(ctx, stale.ID, "Payment timed out")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.svc.ExpirePending(ctx, settled.ID, "Payment timed out")
	require.NoError(t, err)
	require.False(t, ok)

	stored, err := f.svc.Get(ctx, f.user.ID, stale.ID)
	require.NoError(t, err)
	require.Equal(t, enums.TransactionStatusFailed, stored.Status)
	require.Equal(t, "Payment timed out", *stored.FailureReason)
}

func TestWithTxRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if _, err := f.svc.WithTx(tx).Open(ctx, OpenInput{UserID: f.user.ID, PlanID: f.plan.ID, Amount: f.plan.Price, Method: enums.PaymentMethodUPI}); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeInternal, "abort")
	})
	require.Error(t, err)

	summary, err := f.svc.Summary(ctx, f.user.ID)
	require.NoError(t, err)
	require.Zero(t, summary.Total)
}
