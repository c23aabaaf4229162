package notification

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// EmailSender delivers a plain-text email
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Errors for SMTP configuration
var (
	ErrSMTPHostRequired = errors.New("notification: SMTP host is required")
	ErrSMTPFromRequired = errors.New("notification: sender address is required")
)

const defaultSMTPDialTimeout = 10 * time.Second

// SMTPConfig holds the outbound mail relay settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Validate fills the default port and checks required fields
func (c *SMTPConfig) Validate() error {
	if c.Host == "" {
		return ErrSMTPHostRequired
	}
	if c.From == "" {
		return ErrSMTPFromRequired
	}
	if c.Port == 0 {
		c.Port = 25
	}
	return nil
}

// SMTPSender sends mail through an SMTP relay, upgrading to TLS when offered
type SMTPSender struct {
	config SMTPConfig
	dialer *net.Dialer
}

// NewSMTPSender creates an SMTP sender
func NewSMTPSender(config SMTPConfig) (*SMTPSender, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SMTPSender{
		config: config,
		dialer: &net.Dialer{Timeout: defaultSMTPDialTimeout},
	}, nil
}

// SendEmail delivers one message. The context bounds the whole exchange.
func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("notification: dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("notification: smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.config.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("notification: starttls: %w", err)
		}
	}
	if s.config.Username != "" {
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("notification: smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.config.From); err != nil {
		return fmt.Errorf("notification: MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("notification: RCPT TO: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("notification: DATA: %w", err)
	}
	if _, err := w.Write(buildMessage(s.config.From, to, subject, body)); err != nil {
		_ = w.Close()
		return fmt.Errorf("notification: write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("notification: finish message: %w", err)
	}
	return client.Quit()
}

// buildMessage renders an RFC 5322 plain-text message
func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

var _ EmailSender = (*SMTPSender)(nil)
