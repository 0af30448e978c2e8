package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogWarmup refreshes the cached provider service list.
	TaskCatalogWarmup = "catalog:warmup"
	// TaskCatalogBump invalidates every cached provider service list.
	TaskCatalogBump = "catalog:bump"
)

// CatalogWarmupPayload describes why a warmup was requested.
type CatalogWarmupPayload struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewCatalogWarmupTask constructs a warmup task.
func NewCatalogWarmupTask(reason string) (*asynq.Task, error) {
	if reason == "" {
		reason = "scheduled"
	}
	data, err := json.Marshal(CatalogWarmupPayload{Reason: reason, RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogWarmup, data), nil
}

// NewCatalogBumpTask constructs an invalidation task.
func NewCatalogBumpTask() *asynq.Task {
	return asynq.NewTask(TaskCatalogBump, nil)
}
