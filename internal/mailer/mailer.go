// Package mailer sends operator notifications over SMTP. Delivery is
// best-effort: callers log failures and carry on, a mail outage must never
// fail a linking or withdrawal request.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rewardly/rewardly/domain"
)

const dialTimeout = 10 * time.Second

// Config holds SMTP connection settings and the admin recipient.
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	AdminEmail string
}

// Enabled reports whether enough settings are present to send mail.
func (c Config) Enabled() bool {
	return c.Host != "" && c.From != "" && c.AdminEmail != ""
}

// SMTPNotifier implements domain.Notifier over SMTP with STARTTLS.
type SMTPNotifier struct {
	cfg Config
}

// NewSMTPNotifier creates a new SMTPNotifier.
func NewSMTPNotifier(cfg Config) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

// Notify sends subject and body to the configured admin address. Bodies must
// carry only non-secret metadata; notifying is skipped silently when mail is
// not configured.
func (n *SMTPNotifier) Notify(ctx context.Context, subject, body string) error {
	if !n.cfg.Enabled() {
		log.Debug().Str("subject", subject).Msg("mail not configured, dropping notification")
		return nil
	}

	msg := n.buildMessage(subject, body)
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	done := make(chan error, 1)
	go func() {
		done <- n.send(addr, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send notification mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notification mail canceled: %w", ctx.Err())
	}
}

func (n *SMTPNotifier) buildMessage(subject, body string) []byte {
	var sb strings.Builder
	sb.WriteString("From: " + n.cfg.From + "\r\n")
	sb.WriteString("To: " + n.cfg.AdminEmail + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")
	return []byte(sb.String())
}

func (n *SMTPNotifier) send(addr string, msg []byte) error {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		tlsCfg := &tls.Config{ServerName: n.cfg.Host}
		if err = c.StartTLS(tlsCfg); err != nil {
			return err
		}
	}

	if n.cfg.Username != "" {
		auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
		if ok, _ := c.Extension("AUTH"); ok {
			if err = c.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err = c.Mail(n.cfg.From); err != nil {
		return err
	}
	if err = c.Rcpt(n.cfg.AdminEmail); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(msg); err != nil {
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

var _ domain.Notifier = (*SMTPNotifier)(nil)
