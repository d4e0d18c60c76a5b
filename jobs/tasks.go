package jobs

import (
	"encoding/json"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCommissionSummaryRefresh rebuilds the cached commission summary report.
	TaskCommissionSummaryRefresh = "reports:commission_summary"
)

// SummaryRefreshPayload describes why a summary rebuild was requested.
type SummaryRefreshPayload struct {
	Trigger string `json:"trigger"`
}

// NewSummaryRefreshTask constructs an Asynq task for the commission summary rebuild.
func NewSummaryRefreshTask(trigger string) (*asynq.Task, error) {
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		trigger = "schedule"
	}
	data, err := json.Marshal(SummaryRefreshPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionSummaryRefresh, data, asynq.Queue(QueueDefault)), nil
}
