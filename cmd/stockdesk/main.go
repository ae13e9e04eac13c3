package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/stockdesk/internal/app"
	"github.com/odyssey-erp/stockdesk/internal/audit"
	audithttp "github.com/odyssey-erp/stockdesk/internal/audit/http"
	"github.com/odyssey-erp/stockdesk/internal/catalog"
	"github.com/odyssey-erp/stockdesk/internal/dashboard"
	"github.com/odyssey-erp/stockdesk/internal/notify"
	"github.com/odyssey-erp/stockdesk/internal/observability"
	"github.com/odyssey-erp/stockdesk/internal/platform/cache"
	viewhttp "github.com/odyssey-erp/stockdesk/internal/productview/http"
	"github.com/odyssey-erp/stockdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Warn("store close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	var (
		publisher  *notify.Publisher
		notifier   catalog.Notifier
		feed       dashboard.NotificationFeed
		jobHandler = jobs.NewHandler(nil, nil, logger)
	)
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	switch {
	case errors.Is(err, cache.ErrDisabled):
		logger.Info("redis disabled, notifications and jobs are off")
	case err != nil:
		logger.Warn("redis unavailable, notifications and jobs are off", slog.Any("error", err))
	default:
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		publisher = notify.NewPublisher(redisClient, cfg.NotifyChannel)
		notifier = publisher
		feed = publisher

		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		jobClient, err := jobs.NewClient(redisOpts)
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer jobClient.Close()
		inspector := asynq.NewInspector(redisOpts)
		defer inspector.Close()
		jobHandler = jobs.NewHandler(inspector, jobClient, logger)
	}

	catalogService := catalog.NewService(stores.Catalog, catalog.ServiceConfig{
		LowStockThreshold: cfg.LowStockThreshold,
		Notifier:          notifier,
		Observer:          metrics,
		Logger:            logger,
	})
	auditService := audit.NewService(stores.Audit)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalog.NewHandler(logger, catalogService),
		AuditHandler:     audithttp.NewHandler(logger, auditService, audit.NewExporter()),
		ViewHandler:      viewhttp.NewHandler(logger, catalogService, nil),
		DashboardHandler: dashboard.NewHandler(logger, dashboard.NewService(catalogService, auditService, feed)),
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
