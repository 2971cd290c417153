package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("dashboard:alert_scan").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("dashboard:alert_scan").End(boom), boom)

	require.Equal(t, 1.0, counterValue(t, m.runs.WithLabelValues("dashboard:alert_scan", "success")))
	require.Equal(t, 1.0, counterValue(t, m.runs.WithLabelValues("dashboard:alert_scan", "failure")))
	require.Equal(t, 1.0, counterValue(t, m.failures.WithLabelValues("dashboard:alert_scan")))
}

func TestAddAlertsIgnoresEmptyCounts(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddAlerts("urgent", 2)
	m.AddAlerts("urgent", 0)
	m.AddReminders("sent", 3)

	require.Equal(t, 2.0, counterValue(t, m.alerts.WithLabelValues("urgent")))
	require.Equal(t, 3.0, counterValue(t, m.reminders.WithLabelValues("sent")))

	var nilMetrics *Metrics
	nilMetrics.AddAlerts("urgent", 1)
	require.NoError(t, nilMetrics.Track("noop").End(nil))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, c.Write(&metric))
	return metric.GetCounter().GetValue()
}
