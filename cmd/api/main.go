package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/ibrahimkeyboad/payrun/internal/adapter/handler"
	"github.com/ibrahimkeyboad/payrun/internal/adapter/middleware"
	"github.com/ibrahimkeyboad/payrun/internal/adapter/storage"
	"github.com/ibrahimkeyboad/payrun/internal/core/config"
	"github.com/ibrahimkeyboad/payrun/internal/core/method"
	"github.com/ibrahimkeyboad/payrun/internal/core/ratelimit"
	"github.com/ibrahimkeyboad/payrun/internal/core/worker"
)

func main() {
	// 1. Load Config
	cfg := config.LoadConfig()

	// 2. Setup Logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 3. Connect to Database
	dbPool, err := storage.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("❌ Database connection failed", "error", err)
		os.Exit(1)
	}
	if err := storage.Migrate(context.Background(), dbPool); err != nil {
		slog.Error("❌ Database migration failed", "error", err)
		os.Exit(1)
	}

	// 4. Setup Repos
	batchRepo := storage.NewBatchRepository(dbPool)
	paymentRepo := storage.NewPaymentRepository(dbPool)
	entityRepo := storage.NewEntityRepository(dbPool)
	accountRepo := storage.NewAccountRepository(dbPool)

	// 5. Method client behind the shared rate limiter
	limiter := ratelimit.New(cfg.RateLimitRPM, cfg.RateLimitConcurrency)
	methodClient := method.NewClient(cfg.MethodAPIURL, cfg.MethodAPIKey, limiter)

	// 6. Start Worker
	w := worker.New(methodClient, batchRepo, paymentRepo, entityRepo, accountRepo)
	w.Interval = cfg.WorkerInterval
	w.WebhookURL = cfg.WebhookURL
	w.WebhookSecret = cfg.WebhookSecret
	workerCtx, stopWorker := context.WithCancel(context.Background())
	w.Start(workerCtx)

	// 7. Handlers
	uploadHandler := &handler.UploadHandler{Batches: batchRepo, Worker: w}
	batchHandler := &handler.BatchHandler{Batches: batchRepo, Payments: paymentRepo, Worker: w}
	reportHandler := &handler.ReportHandler{Payments: paymentRepo}

	// 8. Setup Fiber
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/v1", middleware.RequireAPIKey(cfg.APIKey))
	api.Post("/batches", middleware.Idempotency(dbPool), uploadHandler.Upload)
	api.Get("/batches", batchHandler.ListBatches)
	api.Get("/batches/:id", batchHandler.GetBatch)
	api.Get("/batches/:id/payments", batchHandler.ListPayments)
	api.Post("/batches/:id/approve", batchHandler.ApproveBatch)
	api.Post("/batches/:id/reject", batchHandler.RejectBatch)
	api.Get("/batches/:id/reports/payments.csv", reportHandler.PaymentsReport)
	api.Get("/batches/:id/reports/branches.csv", reportHandler.BranchesReport)
	api.Get("/batches/:id/reports/payors.csv", reportHandler.PayorsReport)

	// Graceful shutdown: stop accepting requests, stop the worker, then close
	// the database.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("🚀 Server starting", "env", cfg.Env, "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
	}()

	<-stop
	slog.Info("🛑 Shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	stopWorker()
	dbPool.Close()
	slog.Info("👋 Server exited successfully")
}
