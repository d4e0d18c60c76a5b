package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/commissiondesk/internal/jobs"
	"github.com/odyssey-erp/commissiondesk/internal/reports"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SummaryRefresher rebuilds and re-caches the commission summary.
type SummaryRefresher interface {
	Refresh(ctx context.Context) (reports.Summary, error)
}

// SummaryRefreshJob rebuilds the commission summary off the request path.
type SummaryRefreshJob struct {
	Reports SummaryRefresher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
}

// NewSummaryRefreshJob wires dependencies for the summary refresh handler.
func NewSummaryRefreshJob(refresher SummaryRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *SummaryRefreshJob {
	return &SummaryRefreshJob{
		Reports: refresher,
		Logger:  logger,
		Metrics: metrics,
		Timeout: 2 * time.Minute,
	}
}

// Handle processes commission summary refresh tasks.
func (j *SummaryRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("summary refresh: handler not configured")
	}
	var payload SummaryRefreshPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskCommissionSummaryRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("trigger", payload.Trigger))
	logger.Info("starting commission summary refresh")
	started := time.Now()

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	summary, err := j.Reports.Refresh(ctx)
	if err != nil {
		resultErr = err
		logger.Error("refresh commission summary", slog.Any("error", err))
		return resultErr
	}
	j.metrics().SetReportDeals(summary.Deals)

	logger.Info("completed commission summary refresh", slog.Int("deals", summary.Deals), slog.Duration("duration", time.Since(started)))
	return resultErr
}

func (j *SummaryRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCommissionSummaryRefresh))
	}
	return slog.Default().With(slog.String("job", TaskCommissionSummaryRefresh))
}

func (j *SummaryRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
