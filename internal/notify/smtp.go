package notify

import (
	"fmt"
	"net"
	"net/smtp"
	"os"

	"go.uber.org/zap"
)

// SMTPMailer sends mail through a plain SMTP relay configured by SMTP_ADDR,
// SMTP_FROM and optionally SMTP_USER/SMTP_PASSWORD.
type SMTPMailer struct {
	Addr string
	From string
	Auth smtp.Auth
}

// NewMailerFromEnv returns an SMTPMailer when SMTP_ADDR is configured and a
// LogMailer otherwise, so development setups work without a relay.
func NewMailerFromEnv(log *zap.Logger) Mailer {
	addr := os.Getenv("SMTP_ADDR")
	if addr == "" {
		log.Info("SMTP_ADDR not set, notifications will be logged only")
		return &LogMailer{Log: log}
	}

	m := &SMTPMailer{
		Addr: addr,
		From: os.Getenv("SMTP_FROM"),
	}
	if user := os.Getenv("SMTP_USER"); user != "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		m.Auth = smtp.PlainAuth("", user, os.Getenv("SMTP_PASSWORD"), host)
	}
	return m
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.From, to, subject, body)
	return smtp.SendMail(m.Addr, m.Auth, m.From, []string{to}, []byte(msg))
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	Log *zap.Logger
}

func (m *LogMailer) Send(to, subject, body string) error {
	m.Log.Info("notification",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}
