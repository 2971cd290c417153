package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/cashflow-ai/cashflow/internal/dashboard"
	"github.com/cashflow-ai/cashflow/internal/invoices"
	jobmetrics "github.com/cashflow-ai/cashflow/internal/jobs"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

var clock = time.Date(2024, 3, 15, 7, 0, 0, 0, time.UTC)

type staticUsers struct {
	ids []uuid.UUID
	err error
}

func (s staticUsers) ActiveUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.ids, s.err
}

type alertsByUser struct {
	alerts map[uuid.UUID][]dashboard.Alert
	fail   map[uuid.UUID]bool
}

func (a alertsByUser) GetAlerts(ctx context.Context, userID uuid.UUID, now time.Time) ([]dashboard.Alert, error) {
	if a.fail[userID] {
		return nil, shared.ErrDependency
	}
	return a.alerts[userID], nil
}

type reminderSource struct {
	due      map[uuid.UUID][]invoices.Invoice
	recorded []uuid.UUID
	err      error
}

func (r *reminderSource) NeedingReminders(ctx context.Context, userID uuid.UUID, now time.Time) ([]invoices.Invoice, error) {
	return r.due[userID], nil
}

func (r *reminderSource) SendReminder(ctx context.Context, userID, id uuid.UUID, now time.Time) (*invoices.Invoice, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.recorded = append(r.recorded, id)
	return &invoices.Invoice{ID: id}, nil
}

type outbox struct {
	sent []SendEmailPayload
	err  error
}

func (o *outbox) EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error) {
	if o.err != nil {
		return nil, o.err
	}
	o.sent = append(o.sent, payload)
	return &asynq.TaskInfo{Queue: QueueDefault, Type: TaskTypeSendEmail}, nil
}

type memoryKeys struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemoryKeys() *memoryKeys {
	return &memoryKeys{keys: map[string]string{}}
}

func (m *memoryKeys) CheckAndInsert(ctx context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key == "" || module == "" {
		return errors.New("key and module required")
	}
	if _, ok := m.keys[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = module
	return nil
}

func (m *memoryKeys) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func newTestMetrics() (*jobmetrics.Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return jobmetrics.NewMetrics(reg), reg
}

// counter reads a counter sample matching every supplied label.
func counter(reg *prometheus.Registry, name string, labels map[string]string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return -1
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			if matches(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matches(m *dto.Metric, labels map[string]string) bool {
	for _, lp := range m.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
			return false
		}
	}
	return true
}

// completionDuration returns the duration attribute of the first JSON log line carrying one.
func completionDuration(t *testing.T, logs *bytes.Buffer) time.Duration {
	t.Helper()
	dec := json.NewDecoder(logs)
	for dec.More() {
		var line map[string]any
		require.NoError(t, dec.Decode(&line))
		if raw, ok := line["duration"].(float64); ok {
			return time.Duration(int64(raw))
		}
	}
	t.Fatal("no log line with a duration")
	return 0
}

func jsonLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}
