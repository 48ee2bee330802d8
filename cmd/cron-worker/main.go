package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/subhub/telecom-subscriptions/internal/cron"
	"github.com/subhub/telecom-subscriptions/internal/ledger"
	"github.com/subhub/telecom-subscriptions/pkg/config"
	"github.com/subhub/telecom-subscriptions/pkg/db"
	"github.com/subhub/telecom-subscriptions/pkg/instance"
	"github.com/subhub/telecom-subscriptions/pkg/logger"
	"github.com/subhub/telecom-subscriptions/pkg/metrics"
	"github.com/subhub/telecom-subscriptions/pkg/migrate"
	"github.com/subhub/telecom-subscriptions/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	boot := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		boot.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		boot.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
}

// run owns every resource it opens and closes them on the way out.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	jobMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	ledgerService, err := ledger.NewService(ledger.ServiceParams{Repo: ledger.NewRepository(dbClient.DB())})
	if err != nil {
		return err
	}
	staleJob, err := cron.NewStalePendingJob(cron.StalePendingJobParams{
		Logger:     logg,
		Ledger:     ledgerService,
		Metrics:    jobMetrics,
		PendingTTL: cfg.Billing.PendingTTL,
		BatchSize:  cfg.Cron.BatchSize,
	})
	if err != nil {
		return err
	}

	lease, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron"), cfg.Cron.LockTTL)
	if err != nil {
		return err
	}
	registry := cron.NewRegistry(staleJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lease,
		Metrics:  jobMetrics,
		Schedule: cfg.Cron.Schedule,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"schedule": cfg.Cron.Schedule,
		"interval": cfg.Cron.Interval.String(),
		"jobs":     registry.Names(),
	}), "starting cron worker")
	return service.Run(ctx)
}
