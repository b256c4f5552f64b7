package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/good-yellow-bee/alertdesk/internal/models"
)

// SMTPMailer delivers messages over SMTP. The server coordinates come
// from the stored notification configuration at dispatch time, so an
// operator can change the relay without a restart.
type SMTPMailer struct{}

// NewSMTPMailer creates an SMTP mailer.
func NewSMTPMailer() *SMTPMailer {
	return &SMTPMailer{}
}

// Send delivers one message to all recipients in a single SMTP session.
func (m *SMTPMailer) Send(ctx context.Context, cfg *models.NotificationConfig, recipients []string, subject, body string) error {
	msg := buildMessage(cfg, recipients, subject, body)
	addr := fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort)

	tlsConfig := &tls.Config{
		ServerName: cfg.SMTPHost,
	}

	var client *smtp.Client
	var err error

	// Port 465 means implicit TLS, anything else negotiates STARTTLS.
	if cfg.SMTPPort == 465 {
		client, err = connectImplicitTLS(addr, cfg.SMTPHost, tlsConfig)
	} else {
		client, err = connectSTARTTLS(ctx, addr, cfg.SMTPHost, tlsConfig)
	}
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}
	defer client.Close()

	if cfg.SMTPUsername != "" && cfg.SMTPPassword != "" {
		auth := smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(cfg.SenderEmail); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("add recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("start data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}

	return client.Quit()
}

// buildMessage builds a plain text RFC 5322 message.
func buildMessage(cfg *models.NotificationConfig, recipients []string, subject, body string) []byte {
	from := cfg.SenderEmail
	if cfg.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.SenderName, cfg.SenderEmail)
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(recipients, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	return []byte(msg.String())
}

// connectImplicitTLS connects using implicit TLS (port 465).
func connectImplicitTLS(addr, host string, tlsConfig *tls.Config) (*smtp.Client, error) {
	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return nil, err
	}
	return smtp.NewClient(conn, host)
}

// connectSTARTTLS connects using STARTTLS (port 587 or 25).
func connectSTARTTLS(ctx context.Context, addr, host string, tlsConfig *tls.Config) (*smtp.Client, error) {
	dialer := &net.Dialer{
		Timeout: 30 * time.Second,
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	return client, nil
}
