package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// IdempotencyCleanupPayload carries scheduling metadata.
type IdempotencyCleanupPayload struct {
	MaxAgeHours int `json:"max_age_hours"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(maxAgeHours int) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{MaxAgeHours: maxAgeHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}

// KeyCleaner removes processed-operation keys older than the cutoff.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// NewIdempotencyCleanupHandler builds the handler with its storage dependency.
func NewIdempotencyCleanupHandler(cleaner KeyCleaner, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload IdempotencyCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		maxAge := time.Duration(payload.MaxAgeHours) * time.Hour
		if maxAge <= 0 {
			maxAge = 24 * time.Hour
		}
		if err := cleaner.Cleanup(ctx, maxAge); err != nil {
			return err
		}
		logger.Info("idempotency cleanup done", slog.Int("max_age_hours", payload.MaxAgeHours))
		return nil
	}
}
