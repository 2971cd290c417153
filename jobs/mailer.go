package jobs

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// SMTPMailer sends plain-text mail through an SMTP relay such as Mailpit.
type SMTPMailer struct {
	Addr string
	From string
	Auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer builds a mailer for host:port.
func NewSMTPMailer(host string, port int, from string) *SMTPMailer {
	return &SMTPMailer{Addr: net.JoinHostPort(host, strconv.Itoa(port)), From: from, send: smtp.SendMail}
}

// Send delivers msg. The context is only checked before dialing.
func (m *SMTPMailer) Send(ctx context.Context, msg SendEmailPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	send := m.send
	if send == nil {
		send = smtp.SendMail
	}
	if err := send(m.Addr, m.Auth, m.From, []string{msg.To}, buildMessage(m.From, msg)); err != nil {
		return fmt.Errorf("smtp %s: %w", m.Addr, err)
	}
	return nil
}

var headerValue = strings.NewReplacer("\r", "", "\n", " ")

func buildMessage(from string, msg SendEmailPayload) []byte {
	var b strings.Builder
	b.WriteString("From: " + headerValue.Replace(from) + "\r\n")
	b.WriteString("To: " + headerValue.Replace(msg.To) + "\r\n")
	b.WriteString("Subject: " + headerValue.Replace(msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}
