package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/quantlab/internal/monitor"
	"github.com/wonny/quantlab/pkg/logger"
)

// ReadingSource builds a live reading for a user
type ReadingSource interface {
	Reading(ctx context.Context, userID string) (monitor.Reading, error)
}

// MonitorJob evaluates the user's live strategy every hour while the market
// is open. Alerts go out through the monitor's notifiers.
type MonitorJob struct {
	readings ReadingSource
	monitor  *monitor.Monitor
	userID   string
	logger   *logger.Logger
	last     *monitor.Report
}

// NewMonitorJob creates a new monitor job
func NewMonitorJob(readings ReadingSource, m *monitor.Monitor, userID string, log *logger.Logger) *MonitorJob {
	if log == nil {
		log = logger.Nop()
	}
	return &MonitorJob{
		readings: readings,
		monitor:  m,
		userID:   userID,
		logger:   log.WithComponent("monitor_job"),
	}
}

// Name returns the job name
func (j *MonitorJob) Name() string {
	return "monitor"
}

// Schedule returns the cron schedule (평일 09-15시 정각)
func (j *MonitorJob) Schedule() string {
	return "0 0 9-15 * * 1-5"
}

// Last returns the most recent report, nil before the first run
func (j *MonitorJob) Last() *monitor.Report {
	return j.last
}

// Run executes the monitor job
func (j *MonitorJob) Run(ctx context.Context) error {
	r, err := j.readings.Reading(ctx, j.userID)
	if err != nil {
		return fmt.Errorf("reading %s: %w", j.userID, err)
	}

	rep, err := j.monitor.Evaluate(ctx, r)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	j.last = rep

	j.logger.WithFields(map[string]interface{}{
		"user":   j.userID,
		"status": rep.Status,
		"state":  rep.State,
		"alerts": len(rep.Alerts),
	}).Info("Monitor evaluated")
	return nil
}
