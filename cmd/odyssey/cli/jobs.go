package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-gl/jobs"
)

// JobsCLI enqueues ledger jobs and reads the default queue for `odyssey jobs`.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	if redisAddr == "" {
		return nil, errors.New("jobs cli: redis address required")
	}
	opt := asynq.RedisClientOpt{Addr: redisAddr}
	return &JobsCLI{client: asynq.NewClient(opt), inspector: asynq.NewInspector(opt)}, nil
}

func (c *JobsCLI) Close() error {
	var errs []error
	if c.inspector != nil {
		errs = append(errs, c.inspector.Close())
	}
	if c.client != nil {
		errs = append(errs, c.client.Close())
	}
	return errors.Join(errs...)
}

// newTask maps a CLI job name onto its task and enqueue options.
func newTask(name string) (*asynq.Task, []asynq.Option, error) {
	switch name {
	case jobs.TaskGLIntegrityCheck, "integrity":
		task, err := jobs.NewGLIntegrityTask("manual")
		return task, []asynq.Option{asynq.MaxRetry(1), asynq.Unique(time.Minute)}, err
	case jobs.TaskIdempotencySweep, "sweep":
		task, err := jobs.NewIdempotencySweepTask(0)
		return task, []asynq.Option{asynq.MaxRetry(3), asynq.Unique(time.Minute)}, err
	default:
		return nil, nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
}

// Trigger enqueues the named job on the default queue. Duplicate triggers
// within a minute are refused by asynq.
func (c *JobsCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	task, opts, err := newTask(name)
	if err != nil {
		return nil, err
	}
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	return c.client.EnqueueContext(ctx, task, append(opts, asynq.Queue(jobs.QueueDefault))...)
}

// QueueStats is the `jobs stats` output.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	if err := ctx.Err(); err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, fmt.Errorf("jobs cli: queue info: %w", err)
	}
	if info != nil {
		stats.Pending, stats.Active, stats.Scheduled = info.Pending, info.Active, info.Scheduled
		stats.Retry, stats.Archived = info.Retry, info.Archived
	}
	return stats, nil
}

// ListScheduled returns the first page of scheduled tasks, 10 by default.
func (c *JobsCLI) ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}
