package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/adityaverma/bazaarkart-backend/api/controllers"
	"github.com/adityaverma/bazaarkart-backend/api/routes"
	"github.com/adityaverma/bazaarkart-backend/internal/checkout"
	"github.com/adityaverma/bazaarkart-backend/internal/coupons"
	"github.com/adityaverma/bazaarkart-backend/internal/gst"
	"github.com/adityaverma/bazaarkart-backend/internal/notifications"
	"github.com/adityaverma/bazaarkart-backend/internal/orders"
	"github.com/adityaverma/bazaarkart-backend/internal/refunds"
	"github.com/adityaverma/bazaarkart-backend/internal/wallet"
	"github.com/adityaverma/bazaarkart-backend/pkg/config"
	"github.com/adityaverma/bazaarkart-backend/pkg/db"
	"github.com/adityaverma/bazaarkart-backend/pkg/gateway"
	"github.com/adityaverma/bazaarkart-backend/pkg/logger"
	"github.com/adityaverma/bazaarkart-backend/pkg/metrics"
	"github.com/adityaverma/bazaarkart-backend/pkg/migrate"
	"github.com/adityaverma/bazaarkart-backend/pkg/outbox"
	"github.com/adityaverma/bazaarkart-backend/pkg/redis"
	"github.com/adityaverma/bazaarkart-backend/pkg/shipping"
)

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

	paymentGateway, err := gateway.NewSquareGateway(context.Background(), cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap payment gateway", err)
		os.Exit(1)
	}

	shippingClient, err := shipping.NewClient(cfg.Shipping, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap shipping client", err)
		os.Exit(1)
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	walletMetrics := metrics.NewWalletMetrics(prometheus.DefaultRegisterer)

	walletSvc, err := wallet.NewService(wallet.NewRepository(dbClient.DB()), walletMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	couponSvc, err := coupons.NewService(coupons.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon service", err)
		os.Exit(1)
	}

	gstSvc, err := gst.NewService(gst.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create gst service", err)
		os.Exit(1)
	}

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	checkoutSvc, err := checkout.NewService(
		checkout.NewRepository(dbClient.DB()),
		dbClient,
		outboxSvc,
		walletSvc,
		couponSvc,
		gstSvc,
		paymentGateway,
		redisClient,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
		dbClient,
		outboxSvc,
		walletSvc,
		paymentGateway,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	refundsSvc, err := refunds.NewService(
		refunds.NewRepository(dbClient.DB()),
		dbClient,
		outboxSvc,
		walletSvc,
		paymentGateway,
		shippingClient,
		cfg.Refund.LogRetention(),
		walletMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			Redis:         redisClient,
			Checkout:      checkoutSvc,
			Orders:        ordersSvc,
			Refunds:       refundsSvc,
			Wallet:        walletSvc,
			Notifications: notificationsSvc,
			Pingers: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
