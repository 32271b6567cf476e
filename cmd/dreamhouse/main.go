package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/app"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/audit"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/inventory"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/masterdata"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/notify"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/observability"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/platform/cache"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/platform/db"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/procurement"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/users"
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	recorder := audit.NewRecorder(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	mailer := notify.NewSMTPMailer(notify.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		From: cfg.SMTPFrom,
	})

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	masterdataRepo := masterdata.NewRepository(pool)
	masterdataService := masterdata.NewService(masterdataRepo, recorder)
	masterdataHandler := masterdata.NewHandler(logger, masterdataService, cfg.IsProduction())

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, jobClient)
	usersHandler := users.NewHandler(logger, usersService, cfg.IsProduction())

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, recorder)
	inventoryHandler := inventory.NewHandler(logger, inventoryService, cfg.IsProduction())

	procurementRepo := procurement.NewRepository(pool, recorder)
	procurementService := procurement.NewService(
		procurementRepo,
		mailer,
		usersService,
		masterdataService,
		idempotencyStore,
		procurement.Config{AutoFulfill: cfg.ProcurementAutoFulfill},
	)
	procurementHandler := procurement.NewHandler(logger, procurementService, cfg.IsProduction())

	auditHandler := audit.NewHandler(logger, audit.NewRepository(pool))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()
	procurementHandler.OnReceipt = metrics.ReceiptProcessed

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		ProcurementHandler: procurementHandler,
		InventoryHandler:   inventoryHandler,
		MasterDataHandler:  masterdataHandler,
		UsersHandler:       usersHandler,
		AuditHandler:       auditHandler,
		JobHandler:         jobHandler,
		Pool:               pool,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
