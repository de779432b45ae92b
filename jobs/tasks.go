package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGLIntegrityCheck scans the ledger for invariant violations.
	TaskGLIntegrityCheck = "gl:integrity_check"
	// TaskIdempotencySweep removes expired Idempotency-Key records.
	TaskIdempotencySweep = "gl:idempotency_sweep"
)

// GLIntegrityPayload describes who asked for an integrity run.
type GLIntegrityPayload struct {
	Trigger string `json:"trigger"`
}

// NewGLIntegrityTask constructs an Asynq task.
func NewGLIntegrityTask(trigger string) (*asynq.Task, error) {
	if trigger == "" {
		trigger = "cron"
	}
	data, err := json.Marshal(GLIntegrityPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrityCheck, data), nil
}

// IdempotencySweepPayload carries the retention window in hours.
type IdempotencySweepPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencySweepTask builds a sweep task keeping keys for retentionHours.
func NewIdempotencySweepTask(retentionHours int) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencySweepPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencySweep, data), nil
}
