package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/subhub/telecom-subscriptions/api/routes"
	"github.com/subhub/telecom-subscriptions/internal/auth"
	"github.com/subhub/telecom-subscriptions/internal/dashboard"
	"github.com/subhub/telecom-subscriptions/internal/ledger"
	"github.com/subhub/telecom-subscriptions/internal/payments"
	"github.com/subhub/telecom-subscriptions/internal/plans"
	"github.com/subhub/telecom-subscriptions/internal/seed"
	"github.com/subhub/telecom-subscriptions/internal/subscriptions"
	"github.com/subhub/telecom-subscriptions/internal/users"
	"github.com/subhub/telecom-subscriptions/pkg/auth/session"
	"github.com/subhub/telecom-subscriptions/pkg/cache"
	"github.com/subhub/telecom-subscriptions/pkg/config"
	"github.com/subhub/telecom-subscriptions/pkg/db"
	"github.com/subhub/telecom-subscriptions/pkg/instance"
	"github.com/subhub/telecom-subscriptions/pkg/logger"
	"github.com/subhub/telecom-subscriptions/pkg/metrics"
	"github.com/subhub/telecom-subscriptions/pkg/migrate"
	"github.com/subhub/telecom-subscriptions/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	catalogCache, err := cache.New(cfg.Catalog, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog cache", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	plansRepo := plans.NewRepository(conn)
	ledgerRepo := ledger.NewRepository(conn)
	userPlansRepo := subscriptions.NewRepository(conn)

	planService, err := plans.NewService(plans.ServiceParams{
		Repo:            plansRepo,
		Cache:           catalogCache,
		ListCap:         cfg.Catalog.ListCap,
		DefaultCurrency: cfg.Billing.Currency,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create plan service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.ServiceParams{Repo: ledgerRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		TransactionRunner: dbClient,
		Repo:              userPlansRepo,
		Users:             usersRepo,
		Plans:             plansRepo,
		Ledger:            ledgerService,
		Gateway:           payments.NewSimulator(),
		Billing:           cfg.Billing,
		Metrics:           metrics.NewSubscriptionMetrics(registry),
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		CurrentPlans:   subscriptionService,
		Accounts:       subscriptionService,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	dashboardService, err := dashboard.NewService(dashboard.ServiceParams{
		Users:         usersRepo,
		Subscriptions: subscriptionService,
		Spending:      ledgerService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dashboard service", err)
		os.Exit(1)
	}

	if cfg.FeatureFlags.SeedOnStart {
		seeder, err := seed.NewSeeder(seed.SeederParams{
			TransactionRunner: dbClient,
			Users:             usersRepo,
			Plans:             plansRepo,
			UserPlans:         userPlansRepo,
			Ledger:            ledgerRepo,
			PasswordConfig:    cfg.Password,
			Billing:           cfg.Billing,
			Logger:            logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create seeder", err)
			os.Exit(1)
		}
		result, err := seeder.Seed(context.Background(), seed.Options{IfEmpty: true})
		if err != nil {
			logg.Error(context.Background(), "failed to seed database", err)
			os.Exit(1)
		}
		logg.Info(logg.WithFields(context.Background(), map[string]any{
			"skipped":       result.Skipped,
			"users":         result.UsersCreated,
			"plans":         result.PlansCreated,
			"subscriptions": result.SubscriptionsCreated,
		}), "seed completed")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, routes.Services{
			Auth:          authService,
			Plans:         planService,
			Subscriptions: subscriptionService,
			Dashboard:     dashboardService,
		}, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
