package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/adityaverma/bazaarkart-backend/internal/cron"
	"github.com/adityaverma/bazaarkart-backend/internal/reconcile"
	"github.com/adityaverma/bazaarkart-backend/internal/wallet"
	"github.com/adityaverma/bazaarkart-backend/pkg/config"
	"github.com/adityaverma/bazaarkart-backend/pkg/db"
	"github.com/adityaverma/bazaarkart-backend/pkg/logger"
	"github.com/adityaverma/bazaarkart-backend/pkg/metrics"
	"github.com/adityaverma/bazaarkart-backend/pkg/migrate"
	"github.com/adityaverma/bazaarkart-backend/pkg/outbox"
	"github.com/adityaverma/bazaarkart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
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

	walletMetrics := metrics.NewWalletMetrics(prometheus.DefaultRegisterer)
	walletSvc, err := wallet.NewService(wallet.NewRepository(dbClient.DB()), walletMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	reconciler, err := reconcile.NewService(
		reconcile.NewRepository(dbClient.DB()),
		dbClient,
		outboxSvc,
		walletSvc,
		cfg.Reconcile.Epsilon,
		walletMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	jobs, err := buildJobs(reconciler)
	if err != nil {
		logg.Error(context.Background(), "failed to build cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Reconcile.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildJobs(reconciler reconcile.Service) ([]cron.Job, error) {
	pending, err := cron.NewPendingBalanceJob(reconciler)
	if err != nil {
		return nil, err
	}
	backfill, err := cron.NewRefundBackfillJob(reconciler)
	if err != nil {
		return nil, err
	}
	repair, err := cron.NewFanOutRepairJob(reconciler)
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewRefundLogRetentionJob(reconciler)
	if err != nil {
		return nil, err
	}
	return []cron.Job{pending, backfill, repair, retention}, nil
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("cron-worker:%s", env)
}
