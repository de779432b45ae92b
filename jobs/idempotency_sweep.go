package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-gl/internal/jobs"
)

const defaultKeyRetention = 72 * time.Hour

// KeyCleaner deletes idempotency keys older than the retention window.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencySweepJob prunes idempotency_keys so replays are only refused
// within the retention window.
type IdempotencySweepJob struct {
	Store   KeyCleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

func NewIdempotencySweepJob(store KeyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencySweepJob {
	return &IdempotencySweepJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle processes TaskIdempotencySweep tasks.
func (j *IdempotencySweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency sweep: handler not configured")
	}
	var payload IdempotencySweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	retention := defaultKeyRetention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}

	tracker := j.Metrics.Track(TaskIdempotencySweep)
	removed, err := j.Store.Cleanup(ctx, retention)
	if j.Logger != nil {
		if err != nil {
			j.Logger.Error("idempotency sweep", slog.Any("error", err))
		} else {
			j.Logger.Info("idempotency sweep", slog.Int64("removed", removed), slog.Duration("retention", retention))
		}
	}
	return tracker.End(err)
}
