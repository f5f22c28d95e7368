package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ibrahimkeyboad/payrun/internal/adapter/storage"
	"github.com/ibrahimkeyboad/payrun/internal/core/config"
	"github.com/ibrahimkeyboad/payrun/internal/core/method"
	"github.com/ibrahimkeyboad/payrun/internal/core/ratelimit"
	"github.com/ibrahimkeyboad/payrun/internal/core/worker"
)

// Standalone worker: runs the scheduler loop against the shared database
// without serving HTTP. Useful for running the pipeline separately from the
// API.
func main() {
	cfg := config.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	dbPool, err := storage.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("❌ Database connection failed", "error", err)
		os.Exit(1)
	}
	if err := storage.Migrate(context.Background(), dbPool); err != nil {
		slog.Error("❌ Database migration failed", "error", err)
		os.Exit(1)
	}

	batchRepo := storage.NewBatchRepository(dbPool)
	paymentRepo := storage.NewPaymentRepository(dbPool)
	entityRepo := storage.NewEntityRepository(dbPool)
	accountRepo := storage.NewAccountRepository(dbPool)

	limiter := ratelimit.New(cfg.RateLimitRPM, cfg.RateLimitConcurrency)
	methodClient := method.NewClient(cfg.MethodAPIURL, cfg.MethodAPIKey, limiter)

	w := worker.New(methodClient, batchRepo, paymentRepo, entityRepo, accountRepo)
	w.Interval = cfg.WorkerInterval
	w.WebhookURL = cfg.WebhookURL
	w.WebhookSecret = cfg.WebhookSecret

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	w.Trigger() // sweep immediately on boot instead of waiting a full interval

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("🛑 Shutting down worker...")
	cancel()
	dbPool.Close()
	slog.Info("👋 Worker exited successfully")
}
