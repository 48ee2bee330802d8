package cron

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/subhub/telecom-subscriptions/internal/ledger"
	"github.com/subhub/telecom-subscriptions/pkg/db/dbtest"
	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	"github.com/subhub/telecom-subscriptions/pkg/logger"
)

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: &bytes.Buffer{}})
}

func TestNewStalePendingJobRequiresDeps(t *testing.T) {
	_, err := NewStalePendingJob(StalePendingJobParams{})
	require.Error(t, err)
	_, err = NewStalePendingJob(StalePendingJobParams{Logger: quietLogger()})
	require.Error(t, err)
}

func TestStalePendingJobExpiresOldPending(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewSQLite(t)
	user := dbtest.CreateUser(t, db, "jane.smith")
	plan := dbtest.CreatePlan(t, db, dbtest.PlanFixture{Name: "Basic Mobile Plan", Price: 299})

	opened := time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)
	clock := opened
	svc, err := ledger.NewService(ledger.ServiceParams{
		Repo: ledger.NewRepository(db),
		Now:  func() time.Time { return clock },
	})
	require.NoError(t, err)

	open := func() *models.Transaction {
		txn, err := svc.Open(ctx, ledger.OpenInput{
			UserID: user.ID,
			PlanID: plan.ID,
			Amount: plan.Price,
			Method: enums.PaymentMethodUPI,
		})
		require.NoError(t, err)
		return txn
	}
	stale := open()
	settled := open()
	require.NoError(t, svc.SettleSuccess(ctx, settled, "GW_200001"))
	clock = opened.Add(40 * time.Minute)
	fresh := open()

	job, err := NewStalePendingJob(StalePendingJobParams{
		Logger:     quietLogger(),
		Ledger:     svc,
		PendingTTL: 15 * time.Minute,
		Now:        func() time.Time { return opened.Add(45 * time.Minute) },
	})
	require.NoError(t, err)
	require.Equal(t, "stale-pending-transactions", job.Name())
	require.NoError(t, job.Run(ctx))

	got, err := svc.Get(ctx, user.ID, stale.ID)
	require.NoError(t, err)
	require.Equal(t, enums.TransactionStatusFailed, got.Status)
	require.Equal(t, "Payment timed out", *got.FailureReason)

	got, err = svc.Get(ctx, user.ID, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, enums.TransactionStatusPending, got.Status)

	got, err = svc.Get(ctx, user.ID, settled.ID)
	require.NoError(t, err)
	require.Equal(t, enums.TransactionStatusCompleted, got.Status)
}

type flakyExpirer struct {
	rows    []models.Transaction
	failFor uuid.UUID
	expired []uuid.UUID
}

func (f *flakyExpirer) ListStalePending(context.Context, time.Time, int) ([]models.Transaction, error) {
	return f.rows, nil
}

func (f *flakyExpirer) ExpirePending(_ context.Context, id uuid.UUID, _ string) (bool, error) {
	if id == f.failFor {
		return false, errors.New("database is locked")
	}
	f.expired = append(f.expired, id)
	return true, nil
}

func TestStalePendingJobContinuesPastFailures(t *testing.T) {
	first, second, third := uuid.New(), uuid.New(), uuid.New()
	expirer := &flakyExpirer{
		rows:    []models.Transaction{{ID: first}, {ID: second}, {ID: third}},
		failFor: second,
	}
	job, err := NewStalePendingJob(StalePendingJobParams{Logger: quietLogger(), Ledger: expirer})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "database is locked")
	require.Equal(t, []uuid.UUID{first, third}, expirer.expired)
}
