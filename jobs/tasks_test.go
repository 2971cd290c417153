package jobs

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	sent []SendEmailPayload
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg SendEmailPayload) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestEmailJobDeliversPayload(t *testing.T) {
	mailer := &recordingMailer{}
	job := &EmailJob{Mailer: mailer}
	task, err := NewSendEmailTask(SendEmailPayload{To: "a@b.test", Subject: "hi", Body: "body"})
	require.NoError(t, err)
	require.Equal(t, TaskTypeSendEmail, task.Type())

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []SendEmailPayload{{To: "a@b.test", Subject: "hi", Body: "body"}}, mailer.sent)
}

func TestEmailJobSkipsRetryOnBadPayload(t *testing.T) {
	job := &EmailJob{Mailer: &recordingMailer{}}

	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte(`{"subject":"x"}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestEmailJobRetriesOnTransportFailure(t *testing.T) {
	job := &EmailJob{Mailer: &recordingMailer{err: errors.New("connection refused")}}
	task, err := NewSendEmailTask(SendEmailPayload{To: "a@b.test"})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	require.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestSMTPMailerBuildsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	m := NewSMTPMailer("mail.local", 1025, "no-reply@cashflow.test")
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := m.Send(context.Background(), SendEmailPayload{To: "client@acme.test", Subject: "Reminder\r\nBcc: x@evil.test", Body: "Pay up"})
	require.NoError(t, err)
	require.Equal(t, "mail.local:1025", gotAddr)
	require.Equal(t, "no-reply@cashflow.test", gotFrom)
	require.Equal(t, []string{"client@acme.test"}, gotTo)

	headers, body, found := strings.Cut(string(gotMsg), "\r\n\r\n")
	require.True(t, found)
	require.Contains(t, headers, "Subject: Reminder Bcc: x@evil.test")
	require.NotContains(t, headers, "\r\nBcc:")
	require.Equal(t, "Pay up", body)
}

func TestSMTPMailerHonoursCancelledContext(t *testing.T) {
	m := NewSMTPMailer("mail.local", 1025, "no-reply@cashflow.test")
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, m.Send(ctx, SendEmailPayload{To: "x@y.test"}), context.Canceled)
}
