package perf

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/odyssey-gl/internal/jobs"
)

func TestIntegrityJobMetricsWithinBudget(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	const job = "gl:integrity_check"

	for i := 0; i < 20; i++ {
		tracker := metrics.Track(job)
		time.Sleep(2 * time.Millisecond)
		require.NoError(t, tracker.End(nil))
	}
	tracker := metrics.Track(job)
	require.Error(t, tracker.End(errors.New("lock store unavailable")))
	metrics.Skipped(job)
	metrics.AddFindings("unbalanced_entry", 2)

	families, err := reg.Gather()
	require.NoError(t, err)

	success := metricValue(t, families, "odyssey_jobs_total", map[string]string{"job": job, "status": "success"})
	failure := metricValue(t, families, "odyssey_jobs_total", map[string]string{"job": job, "status": "failure"})
	require.Equal(t, 20.0, success)
	require.Equal(t, 1.0, failure)
	require.GreaterOrEqual(t, success/(success+failure), 0.9)

	require.Equal(t, 1.0, metricValue(t, families, "odyssey_jobs_skipped_total", map[string]string{"job": job}))
	require.Equal(t, 2.0, metricValue(t, families, "odyssey_gl_integrity_findings_total", map[string]string{"kind": "unbalanced_entry"}))

	mean := histogramMean(t, families, "odyssey_job_duration_seconds", map[string]string{"job": job})
	require.Less(t, mean, 0.5)
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
