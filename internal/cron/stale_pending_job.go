package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	"github.com/subhub/telecom-subscriptions/pkg/logger"
	"github.com/subhub/telecom-subscriptions/pkg/metrics"
	"go.uber.org/multierr"
)

const (
	stalePendingJobName   = "stale-pending-transactions"
	defaultPendingTTL     = 15 * time.Minute
	defaultStaleBatchSize = 200
	stalePendingReason    = "Payment timed out"
)

type pendingExpirer interface {
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.Transaction, error)
	ExpirePending(ctx context.Context, txnID uuid.UUID, reason string) (bool, error)
}

// StalePendingJobParams configure the stale pending transaction sweep.
type StalePendingJobParams struct {
	Logger     *logger.Logger
	Ledger     pendingExpirer
	Metrics    *metrics.CronJobMetrics
	PendingTTL time.Duration
	BatchSize  int
	Now        func() time.Time
}

// NewStalePendingJob fails transactions left pending longer than the TTL,
// typically because the process died between opening and settling them.
func NewStalePendingJob(params StalePendingJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	ttl := params.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultStaleBatchSize
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &stalePendingJob{
		logg:    params.Logger,
		ledger:  params.Ledger,
		metrics: params.Metrics,
		ttl:     ttl,
		batch:   batch,
		now:     now,
	}, nil
}

type stalePendingJob struct {
	logg    *logger.Logger
	ledger  pendingExpirer
	metrics *metrics.CronJobMetrics
	ttl     time.Duration
	batch   int
	now     func() time.Time
}

func (j *stalePendingJob) Name() string { return stalePendingJobName }

func (j *stalePendingJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	rows, err := j.ledger.ListStalePending(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list stale pending: %w", err)
	}

	var (
		errs    error
		expired int
		raced   int
	)
	for _, row := range rows {
		ok, err := j.ledger.ExpirePending(ctx, row.ID, stalePendingReason)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire %s: %w", row.ID, err))
			continue
		}
		if !ok {
			raced++
			continue
		}
		expired++
	}
	if expired > 0 && j.metrics != nil {
		j.metrics.AddProcessed(stalePendingJobName, expired)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"scanned":  len(rows),
		"expired":  expired,
		"settled":  raced,
		"failures": len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "stale pending sweep complete")
	return errs
}
