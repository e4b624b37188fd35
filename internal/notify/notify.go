// Package notify delivers job notifications by SMTP, or to the log when no
// mail server is configured.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/importexport/internal/core"
	"github.com/JonMunkholm/importexport/internal/logging"
)

// SMTPConfig configures the SMTP mailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP sends messages through a mail server.
type SMTP struct {
	addr string
	auth smtp.Auth
	send sendFunc
	now  func() time.Time
}

// NewSMTP creates an SMTP mailer. Authentication is used only when a
// username is set.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp: host is required")
	}
	port := cfg.Port
	if port == 0 {
		port = 25
	}
	m := &SMTP{
		addr: net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		send: smtp.SendMail,
		now:  time.Now,
	}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return m, nil
}

// Send delivers msg. The context is only used for logging; net/smtp has no
// cancellation.
func (m *SMTP) Send(ctx context.Context, msg core.Message) error {
	if len(msg.To) == 0 {
		return core.ErrNoRecipient
	}
	if err := m.send(m.addr, m.auth, msg.From, msg.To, m.build(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	logging.FromContext(ctx).Info("email sent", "subject", msg.Subject, "to", msg.To)
	return nil
}

func (m *SMTP) build(msg core.Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", headerValue(msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}

// headerValue strips line breaks so a value cannot inject headers.
func headerValue(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// Log writes messages to a structured logger instead of sending them.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a log mailer. A nil logger uses slog.Default at send time.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Send(ctx context.Context, msg core.Message) error {
	if len(msg.To) == 0 {
		return core.ErrNoRecipient
	}
	logger := l.logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}
	logger.Info("email",
		"from", msg.From,
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
