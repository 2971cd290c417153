package jobs

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cashflow-ai/cashflow/internal/dashboard"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

func TestAlertScanCountsAlertsByType(t *testing.T) {
	healthy, late, broken := uuid.New(), uuid.New(), uuid.New()
	source := alertsByUser{
		alerts: map[uuid.UUID][]dashboard.Alert{
			late: {
				{Type: dashboard.AlertUrgent, Priority: dashboard.PriorityHigh, Title: "2 overdue invoices"},
				{Type: dashboard.AlertInfo, Priority: dashboard.PriorityMedium, Title: "Slow-paying clients detected"},
			},
		},
		fail: map[uuid.UUID]bool{broken: true},
	}
	metrics, reg := newTestMetrics()
	job := NewAlertScanJob(staticUsers{ids: []uuid.UUID{healthy, late, broken}}, source, nil, metrics)
	job.clock = func() time.Time { return clock }

	require.NoError(t, job.Handle(context.Background(), NewAlertScanTask()))
	require.Equal(t, 1.0, counter(reg, "cashflow_dashboard_alerts_total", map[string]string{"type": "urgent"}))
	require.Equal(t, 1.0, counter(reg, "cashflow_dashboard_alerts_total", map[string]string{"type": "info"}))
	require.Equal(t, 1.0, counter(reg, "cashflow_jobs_total", map[string]string{"job": TaskDashboardAlertScan, "status": "success"}))
}

func TestAlertScanFailsWhenUsersUnavailable(t *testing.T) {
	metrics, reg := newTestMetrics()
	job := NewAlertScanJob(staticUsers{err: shared.ErrDependency}, alertsByUser{}, nil, metrics)

	err := job.Handle(context.Background(), NewAlertScanTask())
	require.ErrorIs(t, err, shared.ErrDependency)
	require.Equal(t, 1.0, counter(reg, "cashflow_jobs_failures_total", map[string]string{"job": TaskDashboardAlertScan}))
}

func TestAlertScanRequiresDependencies(t *testing.T) {
	var job *AlertScanJob
	require.Error(t, job.Handle(context.Background(), NewAlertScanTask()))
}

func TestAlertScanLogsWallClockDuration(t *testing.T) {
	var logs bytes.Buffer
	job := NewAlertScanJob(staticUsers{ids: []uuid.UUID{uuid.New()}}, alertsByUser{}, jsonLogger(&logs), nil)
	job.clock = func() time.Time { return clock }

	require.NoError(t, job.Handle(context.Background(), NewAlertScanTask()))
	require.Less(t, completionDuration(t, &logs), time.Minute)
}
