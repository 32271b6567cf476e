package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/app"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/audit"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/inventory"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/notify"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/platform/db"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
	"github.com/dreamhouse-erp/dreamhouse-erp/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	mailer := notify.NewSMTPMailer(notify.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		From: cfg.SMTPFrom,
	})

	idempotencyStore := shared.NewIdempotencyStore(pool)
	inventoryService := inventory.NewService(inventory.NewRepository(pool), audit.NewRecorder(pool))

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Metrics:   jobs.NewMetrics(nil),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeTempPasswordMail, Handler: jobs.NewTempPasswordHandler(mailer)},
			{Type: jobs.TaskTypeIdempotencyCleanup, Handler: jobs.NewIdempotencyCleanupHandler(idempotencyStore, cfg.IdempotencyRetention, logger)},
			{Type: jobs.TaskTypeLowStockScan, Handler: jobs.NewLowStockScanHandler(inventoryService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: jobs.NewIdempotencyCleanupTask()},
			{Spec: "0 6 * * *", Task: jobs.NewLowStockScanTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	go func() {
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.Handler()}
		logger.Info("worker metrics listening", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
