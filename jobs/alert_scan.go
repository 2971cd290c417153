package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/cashflow-ai/cashflow/internal/dashboard"
	jobmetrics "github.com/cashflow-ai/cashflow/internal/jobs"
)

// UserLister enumerates the users background jobs iterate over.
type UserLister interface {
	ActiveUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// AlertSource evaluates dashboard alerts for one user.
type AlertSource interface {
	GetAlerts(ctx context.Context, userID uuid.UUID, now time.Time) ([]dashboard.Alert, error)
}

// AlertScanJob evaluates the dashboard alert rules for every active user and
// records what fired, so operators can watch receivables health without a browser.
type AlertScanJob struct {
	Users   UserLister
	Alerts  AlertSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewAlertScanJob initialises the alert scan handler.
func NewAlertScanJob(users UserLister, alerts AlertSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *AlertScanJob {
	return &AlertScanJob{
		Users:   users,
		Alerts:  alerts,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one scan. A failing user is logged and skipped; the run fails
// only when the user list cannot be loaded.
func (j *AlertScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Users == nil || j.Alerts == nil {
		return errors.New("alert scan: handler not configured")
	}
	started := time.Now()
	now := j.now()
	tracker := j.metrics().Track(TaskDashboardAlertScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	users, err := j.Users.ActiveUserIDs(ctx)
	if err != nil {
		resultErr = fmt.Errorf("alert scan: list users: %w", err)
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	fired, failed := 0, 0
	for _, userID := range users {
		alerts, err := j.Alerts.GetAlerts(ctx, userID, now)
		if err != nil {
			failed++
			logger.Warn("evaluate alerts", slog.String("user_id", userID.String()), slog.Any("error", err))
			continue
		}
		for _, a := range alerts {
			level := slog.LevelInfo
			if a.Type == dashboard.AlertUrgent {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "dashboard alert",
				slog.String("user_id", userID.String()),
				slog.String("type", string(a.Type)),
				slog.String("priority", string(a.Priority)),
				slog.String("title", a.Title),
			)
			j.metrics().AddAlerts(string(a.Type), 1)
		}
		fired += len(alerts)
	}

	logger.Info("completed alert scan",
		slog.Int("users", len(users)),
		slog.Int("alerts", fired),
		slog.Int("failed_users", failed),
		slog.Duration("duration", time.Since(started)),
	)
	return resultErr
}

func (j *AlertScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardAlertScan))
	}
	return slog.Default().With(slog.String("job", TaskDashboardAlertScan))
}

func (j *AlertScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AlertScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
