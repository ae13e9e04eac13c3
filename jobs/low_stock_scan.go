package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/stockdesk/internal/catalog"
	jobmetrics "github.com/odyssey-erp/stockdesk/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// StockReader lists products at or below a stock level.
type StockReader interface {
	LowStockProducts(ctx context.Context) ([]catalog.Product, error)
	ProductsAtOrBelow(ctx context.Context, stock int) ([]catalog.Product, error)
}

// LowStockNotifier publishes one low-stock notification.
type LowStockNotifier interface {
	LowStock(ctx context.Context, p catalog.Product) error
}

// LowStockScanJob publishes a notification for every product at or below the
// low-stock threshold.
type LowStockScanJob struct {
	Catalog  StockReader
	Notifier LowStockNotifier
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewLowStockScanJob initialises the scan handler.
func NewLowStockScanJob(catalog StockReader, notifier LowStockNotifier, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Catalog: catalog, Notifier: notifier, Logger: logger, Metrics: metrics}
}

// Handle executes the scan. Individual publish failures are logged and the
// scan continues; the run fails if any publish failed so asynq retries it.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Catalog == nil || j.Notifier == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	start := time.Now()
	tracker := j.metrics().Track(TaskLowStockScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	products, err := j.products(ctx, payload.Threshold)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	sent := 0
	var failed error
	for _, p := range products {
		if err := j.Notifier.LowStock(ctx, p); err != nil {
			logger.Warn("publish low stock", slog.Int64("product_id", p.ID), slog.Any("error", err))
			failed = errors.Join(failed, err)
			continue
		}
		sent++
	}
	j.metrics().AddLowStockAlerts(sent)

	logger.Info("completed low stock scan",
		slog.Int("products", len(products)),
		slog.Int("published", sent),
		slog.Duration("duration", time.Since(start)),
	)
	resultErr = failed
	return resultErr
}

func (j *LowStockScanJob) products(ctx context.Context, threshold int) ([]catalog.Product, error) {
	if threshold > 0 {
		return j.Catalog.ProductsAtOrBelow(ctx, threshold)
	}
	return j.Catalog.LowStockProducts(ctx)
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLowStockScan))
	}
	return slog.Default().With(slog.String("job", TaskLowStockScan))
}

func (j *LowStockScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
