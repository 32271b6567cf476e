// Package jobs runs background work over Redis: transactional mail retries,
// idempotency-key cleanup and the nightly low-stock scan.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/inventory"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/notify"
	"github.com/dreamhouse-erp/dreamhouse-erp/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeTempPasswordMail delivers a temporary password to a new or
	// reset account.
	TaskTypeTempPasswordMail = "mail:temp_password"
	// TaskTypeIdempotencyCleanup purges expired idempotency keys.
	TaskTypeIdempotencyCleanup = "idempotency:cleanup"
	// TaskTypeLowStockScan reports stock rows that fell below their minimum.
	TaskTypeLowStockScan = "stock:low_scan"
)

// NewTempPasswordTask constructs the mail task.
func NewTempPasswordTask(msg notify.TempPasswordMessage) (*asynq.Task, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeTempPasswordMail, data, asynq.MaxRetry(5)), nil
}

// NewTempPasswordHandler processes TaskTypeTempPasswordMail tasks.
func NewTempPasswordHandler(mailer notify.Mailer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var msg notify.TempPasswordMessage
		if err := json.Unmarshal(t.Payload(), &msg); err != nil {
			return asynq.SkipRetry
		}
		return mailer.SendTempPassword(ctx, msg)
	}
}

// NewIdempotencyCleanupTask constructs the cleanup cron task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeIdempotencyCleanup, nil)
}

// NewIdempotencyCleanupHandler purges keys older than retention.
func NewIdempotencyCleanupHandler(store *shared.IdempotencyStore, retention time.Duration, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		removed, err := store.Cleanup(ctx, retention)
		if err != nil {
			return err
		}
		logger.Info("idempotency cleanup", slog.Int64("removed", removed))
		return nil
	}
}

// NewLowStockScanTask constructs the scan cron task.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskTypeLowStockScan, nil)
}

// LowStockLister reads stock rows below their configured minimum.
type LowStockLister interface {
	LowStock(ctx context.Context) ([]inventory.WarehouseStock, error)
}

// NewLowStockScanHandler logs every stock row under its minimum so operators
// can raise material requests before a site runs dry.
func NewLowStockScanHandler(stocks LowStockLister, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		rows, err := stocks.LowStock(ctx)
		if err != nil {
			return err
		}
		for _, row := range rows {
			logger.Warn("stock below minimum",
				slog.Int64("warehouse_id", row.WarehouseID),
				slog.Int64("material_id", row.MaterialID),
				slog.Float64("quantity", row.Quantity),
				slog.Float64("min", row.Min),
			)
		}
		logger.Info("low stock scan finished", slog.Int("rows", len(rows)))
		return nil
	}
}
