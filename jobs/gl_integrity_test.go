package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/integrity"
	jobmetrics "github.com/odyssey-erp/odyssey-gl/internal/jobs"
	"github.com/odyssey-erp/odyssey-gl/internal/shared"
)

type runnerStub struct {
	calls  int
	report integrity.Report
	err    error
}

func (r *runnerStub) Run(context.Context) (integrity.Report, error) {
	r.calls++
	return r.report, r.err
}

func newJob(t *testing.T, runner IntegrityRunner) (*GLIntegrityJob, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGLIntegrityJob(runner, client, logger, jobmetrics.NewMetrics(prometheus.NewRegistry())), mr
}

func integrityTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := NewGLIntegrityTask("")
	require.NoError(t, err)
	return task
}

func TestGLIntegrityTaskPayload(t *testing.T) {
	task := integrityTask(t)
	require.Equal(t, TaskGLIntegrityCheck, task.Type())
	var payload GLIntegrityPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, "cron", payload.Trigger)
}

func TestGLIntegrityJobReleasesLock(t *testing.T) {
	runner := &runnerStub{report: integrity.Report{RunID: "r1", Findings: []integrity.Finding{
		{Kind: integrity.FindingUnbalancedEntry, Entity: "journal_entry", EntityID: 7},
	}}}
	job, mr := newJob(t, runner)

	require.NoError(t, job.Handle(context.Background(), integrityTask(t)))
	require.Equal(t, 1, runner.calls)
	require.False(t, mr.Exists(shared.IntegrityLockKey()))

	require.NoError(t, job.Handle(context.Background(), integrityTask(t)))
	require.Equal(t, 2, runner.calls)
}

func TestGLIntegrityJobSkipsWhileLocked(t *testing.T) {
	runner := &runnerStub{}
	job, mr := newJob(t, runner)
	require.NoError(t, mr.Set(shared.IntegrityLockKey(), "other-run"))

	require.NoError(t, job.Handle(context.Background(), integrityTask(t)))
	require.Zero(t, runner.calls)

	held, err := mr.Get(shared.IntegrityLockKey())
	require.NoError(t, err)
	require.Equal(t, "other-run", held)
}

func TestGLIntegrityJobReturnsRunError(t *testing.T) {
	boom := errors.New("db down")
	job, mr := newJob(t, &runnerStub{err: boom})

	err := job.Handle(context.Background(), integrityTask(t))
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists(shared.IntegrityLockKey()))
}

func TestGLIntegrityJobRejectsBadPayload(t *testing.T) {
	job, _ := newJob(t, &runnerStub{})
	err := job.Handle(context.Background(), asynq.NewTask(TaskGLIntegrityCheck, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, slog.New(slog.NewTextHandler(io.Discard, nil))).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"active":0,"retry":0,"failed":0}`, rec.Body.String())
}
