package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGrantSweep re-runs permission reconciliation across all accounts.
	TaskGrantSweep = "rbac:grant_sweep"
	// TaskTokenCleanup deletes auth tokens whose account no longer resolves.
	TaskTokenCleanup = "auth:token_cleanup"
)

// GrantSweepPayload scopes a sweep run. A zero UserID sweeps every account.
type GrantSweepPayload struct {
	UserID int64 `json:"user_id"`
}

// NewGrantSweepTask constructs an Asynq task.
func NewGrantSweepTask(payload GrantSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGrantSweep, data), nil
}

// TokenCleanupPayload carries no options yet; it exists so future runs can be
// scoped without changing the task type.
type TokenCleanupPayload struct{}

// NewTokenCleanupTask constructs an Asynq task.
func NewTokenCleanupTask(payload TokenCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTokenCleanup, data), nil
}
