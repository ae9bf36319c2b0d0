package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/swiftbasket/swiftbasket-backend/internal/coins"
	"github.com/swiftbasket/swiftbasket-backend/internal/orders"
	"github.com/swiftbasket/swiftbasket-backend/internal/refunds"
	"github.com/swiftbasket/swiftbasket-backend/internal/worker"
	"github.com/swiftbasket/swiftbasket-backend/pkg/config"
	"github.com/swiftbasket/swiftbasket-backend/pkg/db"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
	"github.com/swiftbasket/swiftbasket-backend/pkg/metrics"
	"github.com/swiftbasket/swiftbasket-backend/pkg/migrate"
	"github.com/swiftbasket/swiftbasket-backend/pkg/outbox"
	"github.com/swiftbasket/swiftbasket-backend/pkg/payment"
	"github.com/swiftbasket/swiftbasket-backend/pkg/redis"
	"github.com/swiftbasket/swiftbasket-backend/pkg/shipping"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "outbox-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
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

	paymentClient, err := payment.NewClient(cfg.Payment, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment client", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	coinService, err := coins.NewService(coins.NewRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create coin service", err)
		os.Exit(1)
	}

	refundService, err := refunds.NewService(
		refunds.NewRepository(dbClient.DB()),
		dbClient,
		coinService,
		paymentClient,
		outboxService,
		cfg.Checkout.ReturnWindowDays,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create refund service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	courier := shipping.NewClient(cfg.Shipping, logg)

	outboxMetrics := metrics.NewOutboxMetrics(prometheus.DefaultRegisterer)

	dispatcher, err := worker.NewDispatcher(cfg.Outbox, outbox.NewRepository(dbClient.DB()), redisClient, outboxMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	handlers, err := worker.NewHandlers(coinService, refundService, courier, ordersRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create handlers", err)
		os.Exit(1)
	}
	handlers.RegisterAll(dispatcher)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	metricsServer := &http.Server{Addr: ":" + port, Handler: promhttp.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(context.Background(), "metrics server stopped unexpectedly", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting outbox worker")

	if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox worker stopped unexpectedly", err)
		os.Exit(1)
	}

	_ = metricsServer.Close()
	logg.Info(ctx, "outbox worker shutting down gracefully")
}
