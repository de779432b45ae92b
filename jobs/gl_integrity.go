package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/integrity"
	jobmetrics "github.com/odyssey-erp/odyssey-gl/internal/jobs"
	"github.com/odyssey-erp/odyssey-gl/internal/shared"
)

const defaultIntegrityLockTTL = 15 * time.Minute

// IntegrityRunner executes one integrity scan.
type IntegrityRunner interface {
	Run(ctx context.Context) (integrity.Report, error)
}

// GLIntegrityJob runs the ledger integrity scan under a redis lock so that
// two runs never overlap.
type GLIntegrityJob struct {
	Runner  IntegrityRunner
	Redis   *redis.Client
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	LockTTL time.Duration
}

func NewGLIntegrityJob(runner IntegrityRunner, client *redis.Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *GLIntegrityJob {
	return &GLIntegrityJob{Runner: runner, Redis: client, Logger: logger, Metrics: metrics, LockTTL: defaultIntegrityLockTTL}
}

// Handle processes TaskGLIntegrityCheck tasks.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Runner == nil {
		return errors.New("gl integrity: handler not configured")
	}
	var payload GLIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	logger := j.logger().With(slog.String("job", "gl_integrity"), slog.String("trigger", payload.Trigger))

	release, acquired, err := j.lock(ctx)
	if err != nil {
		logger.Error("acquire integrity lock", slog.Any("error", err))
		return err
	}
	if !acquired {
		j.Metrics.Skipped(TaskGLIntegrityCheck)
		logger.Info("integrity check already running, skipped")
		return nil
	}
	defer release()

	tracker := j.Metrics.Track(TaskGLIntegrityCheck)
	report, err := j.Runner.Run(ctx)
	if err != nil {
		logger.Error("integrity check failed", slog.Any("error", err))
		return tracker.End(err)
	}

	byKind := map[integrity.FindingKind]int{}
	for _, f := range report.Findings {
		byKind[f.Kind]++
		logger.Warn("ledger integrity finding",
			slog.String("kind", string(f.Kind)),
			slog.String("entity", f.Entity),
			slog.Int64("entity_id", f.EntityID),
			slog.String("detail", f.Detail),
		)
	}
	for kind, count := range byKind {
		j.Metrics.AddFindings(string(kind), count)
	}
	logger.Info("GL integrity check executed",
		slog.String("run_id", report.RunID),
		slog.Int("entries", report.Checked.Entries),
		slog.Int("findings", len(report.Findings)),
	)
	return tracker.End(nil)
}

// lock takes the integrity lock. Without redis every run proceeds.
func (j *GLIntegrityJob) lock(ctx context.Context) (func(), bool, error) {
	if j.Redis == nil {
		return func() {}, true, nil
	}
	ttl := j.LockTTL
	if ttl <= 0 {
		ttl = defaultIntegrityLockTTL
	}
	return shared.NewRedisLock(j.Redis, shared.IntegrityLockKey(), ttl).TryAcquire(ctx)
}

func (j *GLIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
