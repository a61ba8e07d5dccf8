package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nguyenhoangkha03/quan-ly-ban-hang-backend-sub002/internal/sales/orders"
)

const (
	// TaskStaleReservationScan reports delivery orders holding reservations
	// past a configured age. Report only: reservations are never released
	// automatically, an operator has to decide.
	TaskStaleReservationScan = "maintenance:stale_reservation_scan"
)

// StaleReservationScanPayload carries the age threshold.
type StaleReservationScanPayload struct {
	MaxAgeHours int `json:"max_age_hours"`
}

// NewStaleReservationScanTask constructs the scan task.
func NewStaleReservationScanTask(maxAgeHours int) (*asynq.Task, error) {
	body, err := json.Marshal(StaleReservationScanPayload{MaxAgeHours: maxAgeHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStaleReservationScan, body, asynq.Queue(QueueDefault)), nil
}

// StaleOrderLister finds orders still holding reservations past the cutoff.
type StaleOrderLister interface {
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]orders.Order, error)
}

// NewStaleReservationScanHandler builds the handler with its repository.
func NewStaleReservationScanHandler(lister StaleOrderLister, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload StaleReservationScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		maxAge := time.Duration(payload.MaxAgeHours) * time.Hour
		if maxAge <= 0 {
			maxAge = 72 * time.Hour
		}
		stale, err := lister.ListStalePending(ctx, time.Now().Add(-maxAge), 200)
		if err != nil {
			return err
		}
		for _, o := range stale {
			logger.Warn("stale reservation",
				slog.String("code", o.Code),
				slog.String("status", string(o.Status)),
				slog.Int64("customer_id", o.CustomerID),
				slog.Time("created_at", o.CreatedAt),
			)
		}
		if len(stale) > 0 {
			logger.Info("stale reservation scan done", slog.Int("count", len(stale)))
		}
		return nil
	}
}
