package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/commissiondesk/internal/jobs"
	"github.com/odyssey-erp/commissiondesk/internal/reports"
)

type stubRefresher struct {
	summary reports.Summary
	err     error
	calls   int
}

func (s *stubRefresher) Refresh(ctx context.Context) (reports.Summary, error) {
	s.calls++
	return s.summary, s.err
}

func TestSummaryRefreshTaskPayload(t *testing.T) {
	task, err := NewSummaryRefreshTask("  ")
	require.NoError(t, err)
	assert.Equal(t, TaskCommissionSummaryRefresh, task.Type())

	var payload SummaryRefreshPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "schedule", payload.Trigger)
}

func TestSummaryRefreshJobRecordsDeals(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	refresher := &stubRefresher{summary: reports.Summary{Deals: 12}}
	job := NewSummaryRefreshJob(refresher, nil, metrics)

	task, err := NewSummaryRefreshTask("manual")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, refresher.calls)

	families, err := registry.Gather()
	require.NoError(t, err)
	var gauge, runs float64
	for _, family := range families {
		switch family.GetName() {
		case "commissiondesk_report_deals":
			gauge = family.GetMetric()[0].GetGauge().GetValue()
		case "commissiondesk_jobs_total":
			runs = family.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(12), gauge)
	assert.Equal(t, float64(1), runs)
}

func TestSummaryRefreshJobPropagatesFailure(t *testing.T) {
	refresher := &stubRefresher{err: errors.New("backend down")}
	job := NewSummaryRefreshJob(refresher, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := job.Handle(context.Background(), asynq.NewTask(TaskCommissionSummaryRefresh, nil))
	require.Error(t, err)
	assert.Equal(t, 1, refresher.calls)
}

func TestSummaryRefreshJobSkipsMalformedPayload(t *testing.T) {
	refresher := &stubRefresher{}
	job := NewSummaryRefreshJob(refresher, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := job.Handle(context.Background(), asynq.NewTask(TaskCommissionSummaryRefresh, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, refresher.calls)
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, nil).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body QueueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, QueueDefault, body.Queue)
	assert.Zero(t, body.Pending)
}
