package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan publishes low-stock notifications for the whole catalog.
	TaskLowStockScan = "catalog:low_stock_scan"
)

// LowStockScanPayload carries scheduling metadata. A positive Threshold
// overrides the catalog's configured one.
type LowStockScanPayload struct {
	RequestedAt time.Time `json:"requested_at"`
	Threshold   int       `json:"threshold,omitempty"`
}

// NewLowStockScanTask constructs an Asynq task for the low-stock scan.
func NewLowStockScanTask(at time.Time, threshold int) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{RequestedAt: at, Threshold: threshold})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}
