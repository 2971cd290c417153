package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/cashflow-ai/cashflow/internal/invoices"
	jobmetrics "github.com/cashflow-ai/cashflow/internal/jobs"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

const reminderModule = "invoice_reminder"

// Reminder outcomes reported to metrics.
const (
	ReminderSent      = "sent"
	ReminderDuplicate = "duplicate"
	ReminderNoEmail   = "no_email"
	ReminderFailed    = "failed"
)

// ReminderSource lists invoices due a reminder and records sent reminders.
type ReminderSource interface {
	NeedingReminders(ctx context.Context, userID uuid.UUID, now time.Time) ([]invoices.Invoice, error)
	SendReminder(ctx context.Context, userID, id uuid.UUID, now time.Time) (*invoices.Invoice, error)
}

// EmailEnqueuer queues outbound email.
type EmailEnqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// KeyClaimer claims idempotency keys so a reminder is queued at most once per day.
type KeyClaimer interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// ReminderDispatchJob queues payment reminder emails for overdue invoices.
type ReminderDispatchJob struct {
	Users    UserLister
	Invoices ReminderSource
	Mail     EmailEnqueuer
	Keys     KeyClaimer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// ReminderDispatchConfig groups the dispatch job dependencies.
type ReminderDispatchConfig struct {
	Users    UserLister
	Invoices ReminderSource
	Mail     EmailEnqueuer
	Keys     KeyClaimer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewReminderDispatchJob initialises the reminder dispatch handler.
func NewReminderDispatchJob(cfg ReminderDispatchConfig) *ReminderDispatchJob {
	return &ReminderDispatchJob{
		Users:    cfg.Users,
		Invoices: cfg.Invoices,
		Mail:     cfg.Mail,
		Keys:     cfg.Keys,
		Logger:   cfg.Logger,
		Metrics:  cfg.Metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle runs one dispatch pass over every active user.
func (j *ReminderDispatchJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Users == nil || j.Invoices == nil || j.Mail == nil || j.Keys == nil {
		return errors.New("reminder dispatch: handler not configured")
	}
	started := time.Now()
	now := j.now()
	tracker := j.metrics().Track(TaskInvoiceReminderDispatch)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	users, err := j.Users.ActiveUserIDs(ctx)
	if err != nil {
		resultErr = fmt.Errorf("reminder dispatch: list users: %w", err)
		logger.Error("dispatch failed", slog.Any("error", err))
		return resultErr
	}

	counts := map[string]int{}
	for _, userID := range users {
		due, err := j.Invoices.NeedingReminders(ctx, userID, now)
		if err != nil {
			counts[ReminderFailed]++
			logger.Warn("list reminders", slog.String("user_id", userID.String()), slog.Any("error", err))
			continue
		}
		for _, inv := range due {
			outcome := j.dispatch(ctx, logger, userID, inv, now)
			counts[outcome]++
		}
	}
	for outcome, n := range counts {
		j.metrics().AddReminders(outcome, n)
	}

	logger.Info("completed reminder dispatch",
		slog.Int("users", len(users)),
		slog.Int("sent", counts[ReminderSent]),
		slog.Int("failed", counts[ReminderFailed]),
		slog.Duration("duration", time.Since(started)),
	)
	if counts[ReminderFailed] > 0 {
		resultErr = fmt.Errorf("reminder dispatch: %d failures", counts[ReminderFailed])
	}
	return resultErr
}

func (j *ReminderDispatchJob) dispatch(ctx context.Context, logger *slog.Logger, userID uuid.UUID, inv invoices.Invoice, now time.Time) string {
	log := logger.With(slog.String("invoice_id", inv.ID.String()))
	if inv.ClientEmail == nil || *inv.ClientEmail == "" {
		return ReminderNoEmail
	}

	key := ReminderKey(inv.ID, now)
	if err := j.Keys.CheckAndInsert(ctx, key, reminderModule); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return ReminderDuplicate
		}
		log.Warn("claim reminder key", slog.Any("error", err))
		return ReminderFailed
	}

	if _, err := j.Mail.EnqueueSendEmail(ctx, ReminderEmail(inv, now)); err != nil {
		log.Warn("enqueue reminder email", slog.Any("error", err))
		if derr := j.Keys.Delete(ctx, key); derr != nil {
			log.Warn("release reminder key", slog.Any("error", derr))
		}
		return ReminderFailed
	}
	if _, err := j.Invoices.SendReminder(ctx, userID, inv.ID, now); err != nil {
		// The email is already queued; keep the key so it is not sent twice today.
		log.Warn("record reminder", slog.Any("error", err))
		return ReminderFailed
	}
	return ReminderSent
}

// ReminderKey identifies one reminder for an invoice on a calendar day.
func ReminderKey(invoiceID uuid.UUID, now time.Time) string {
	return "reminder:" + invoiceID.String() + ":" + shared.FormatDate(now)
}

// ReminderEmail renders the reminder sent to the invoice's client.
func ReminderEmail(inv invoices.Invoice, now time.Time) SendEmailPayload {
	days := inv.DaysOverdue(now)
	return SendEmailPayload{
		To:      *inv.ClientEmail,
		Subject: fmt.Sprintf("Payment reminder: invoice %s", inv.Label()),
		Body: fmt.Sprintf("Hello %s,\n\nInvoice %s for $%s was due on %s and is now %d days overdue.\nPlease arrange payment at your earliest convenience.\n",
			inv.ClientName, inv.Label(), inv.Amount.StringFixed(shared.MoneyPlaces), shared.FormatDate(inv.DueDate), days),
	}
}

func (j *ReminderDispatchJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskInvoiceReminderDispatch))
	}
	return slog.Default().With(slog.String("job", TaskInvoiceReminderDispatch))
}

func (j *ReminderDispatchJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReminderDispatchJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
