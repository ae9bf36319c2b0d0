package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/swiftbasket/swiftbasket-backend/api/routes"
	"github.com/swiftbasket/swiftbasket-backend/internal/cart"
	"github.com/swiftbasket/swiftbasket-backend/internal/coins"
	"github.com/swiftbasket/swiftbasket-backend/internal/coupons"
	"github.com/swiftbasket/swiftbasket-backend/internal/orders"
	"github.com/swiftbasket/swiftbasket-backend/internal/refunds"
	"github.com/swiftbasket/swiftbasket-backend/pkg/config"
	"github.com/swiftbasket/swiftbasket-backend/pkg/db"
	"github.com/swiftbasket/swiftbasket-backend/pkg/logger"
	"github.com/swiftbasket/swiftbasket-backend/pkg/migrate"
	"github.com/swiftbasket/swiftbasket-backend/pkg/outbox"
	"github.com/swiftbasket/swiftbasket-backend/pkg/payment"
	"github.com/swiftbasket/swiftbasket-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

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

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	couponService, err := coupons.NewService(coupons.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.NewRepository(dbClient.DB()), coinService, couponService, cfg.Checkout, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
		dbClient,
		cartService,
		coinService,
		couponService,
		paymentClient,
		outboxService,
		cfg.Checkout,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
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

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg, dbClient, redisClient, paymentClient,
			cartService, orderService, refundService, coinService,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "error during server shutdown", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}
