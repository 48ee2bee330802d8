package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/subhub/telecom-subscriptions/internal/ledger"
	"github.com/subhub/telecom-subscriptions/internal/plans"
	"github.com/subhub/telecom-subscriptions/internal/seed"
	"github.com/subhub/telecom-subscriptions/internal/subscriptions"
	"github.com/subhub/telecom-subscriptions/internal/users"
	"github.com/subhub/telecom-subscriptions/pkg/config"
	"github.com/subhub/telecom-subscriptions/pkg/db"
	"github.com/subhub/telecom-subscriptions/pkg/logger"
	"github.com/subhub/telecom-subscriptions/pkg/migrate"
	"go.uber.org/multierr"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
	ifEmpty bool
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|create|validate|seed")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "migrations directory on disk")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.BoolVar(&opts.ifEmpty, "if-empty", false, "skip seeding when users already exist")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "config.load_failed", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
		"dir": opts.dir,
	})

	if err := run(ctx, cfg, logg, opts); err != nil {
		logg.Error(ctx, "migrate.failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) (err error) {
	// create and validate only touch files
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return errors.New("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return fmt.Errorf("validate migrations: %w", err)
		}
		fmt.Println("migration validation passed")
		return nil
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()
	logg.Info(ctx, "migrate.ready")

	switch {
	case opts.cmd == "seed":
		return runSeed(ctx, logg, cfg, dbClient, opts.ifEmpty)
	case cfg.DB.IsSQLite():
		if opts.cmd != "up" {
			return fmt.Errorf("-cmd=%s is not supported for sqlite", opts.cmd)
		}
		return migrate.ApplySQLiteSchema(ctx, dbClient.DB())
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return err
	}
	source, err := migrate.Source(opts.dir)
	if err != nil {
		return err
	}
	migrator, err := migrate.NewMigrator(sqlDB, source)
	if err != nil {
		return err
	}
	return runGoose(ctx, migrator, opts.cmd, opts.version)
}

func runGoose(ctx context.Context, migrator *migrate.Migrator, cmd, version string) error {
	switch cmd {
	case "up":
		applied, err := migrator.Up(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("applied %d migration(s): %v\n", len(applied), applied)
	case "down":
		rolled, err := migrator.Down(ctx)
		if err != nil {
			return err
		}
		fmt.Println("rolled back:", rolled)
	case "status":
		lines, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Println(line)
		}
	case "version":
		if version == "" {
			return errors.New("missing -version")
		}
		return migrator.To(ctx, version)
	default:
		return fmt.Errorf("unknown -cmd value %q", cmd)
	}
	return nil
}

func runSeed(ctx context.Context, logg *logger.Logger, cfg *config.Config, dbClient *db.Client, ifEmpty bool) error {
	conn := dbClient.DB()
	seeder, err := seed.NewSeeder(seed.SeederParams{
		TransactionRunner: dbClient,
		Users:             users.NewRepository(conn),
		Plans:             plans.NewRepository(conn),
		UserPlans:         subscriptions.NewRepository(conn),
		Ledger:            ledger.NewRepository(conn),
		PasswordConfig:    cfg.Password,
		Billing:           cfg.Billing,
		Logger:            logg,
	})
	if err != nil {
		return err
	}
	result, err := seeder.Seed(ctx, seed.Options{IfEmpty: ifEmpty})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	fmt.Printf("seed complete: skipped=%v users=%d plans=%d subscriptions=%d\n",
		result.Skipped, result.UsersCreated, result.PlansCreated, result.SubscriptionsCreated)
	return nil
}
