package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNotify is the task type for outbound domain-event notifications.
	TaskTypeNotify = "notify:event"
)

// NotifyPayload describes a domain event to fan out to subscribers (email,
// webhooks). Delivery details live entirely in the worker.
type NotifyPayload struct {
	// EventID lets downstream subscribers deduplicate redelivered events.
	EventID  string    `json:"event_id"`
	Event    string    `json:"event"`
	Entity   string    `json:"entity"`
	EntityID int64     `json:"entity_id"`
	Code     string    `json:"code"`
	ActorID  int64     `json:"actor_id"`
	At       time.Time `json:"at"`
}

// NewNotifyTask constructs an Asynq task.
func NewNotifyTask(payload NotifyPayload) (*asynq.Task, error) {
	if payload.EventID == "" {
		payload.EventID = uuid.NewString()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotify, data), nil
}

// HandleNotifyTask processes TaskTypeNotify tasks.
func HandleNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload NotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: fan out to SMTP/webhook subscribers in a later phase.
	fmt.Printf("[jobs] notify event=%s entity=%s code=%s\n", payload.Event, payload.Entity, payload.Code)
	return nil
}
