package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskDashboardAlertScan evaluates dashboard alerts for every active user.
	TaskDashboardAlertScan = "dashboard:alert_scan"
	// TaskInvoiceReminderDispatch sends payment reminders for overdue invoices.
	TaskInvoiceReminderDispatch = "invoices:reminder_dispatch"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewAlertScanTask builds the scheduled alert scan task.
func NewAlertScanTask() *asynq.Task {
	return asynq.NewTask(TaskDashboardAlertScan, nil)
}

// NewReminderDispatchTask builds the scheduled reminder dispatch task.
func NewReminderDispatchTask() *asynq.Task {
	return asynq.NewTask(TaskInvoiceReminderDispatch, nil)
}

// Mailer delivers one email.
type Mailer interface {
	Send(ctx context.Context, msg SendEmailPayload) error
}

// EmailJob processes TaskTypeSendEmail tasks.
type EmailJob struct {
	Mailer Mailer
	Logger *slog.Logger
}

// Handle decodes the payload and hands it to the mailer. Malformed payloads are not retried.
func (j *EmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode email payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("email payload missing recipient: %w", asynq.SkipRetry)
	}
	if err := j.Mailer.Send(ctx, payload); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if j.Logger != nil {
		j.Logger.Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	}
	return nil
}
