package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	"stock-alerts/internal/config"
	errs "stock-alerts/internal/errors"
)

// EmailChannel sends notifications via email using SMTP.
type EmailChannel struct {
	smtpHost string
	smtpPort int
	username string
	password string
	from     string
	to       string
	enabled  bool
}

// NewEmailChannel creates a new email channel. The channel constructs
// disabled when any required credential is missing.
func NewEmailChannel(creds config.SMTPCredentials) *EmailChannel {
	return &EmailChannel{
		smtpHost: creds.Host,
		smtpPort: creds.Port,
		username: creds.Username,
		password: creds.Password,
		from:     creds.From,
		to:       creds.To,
		enabled:  creds.Host != "" && creds.From != "" && creds.Password != "" && creds.To != "",
	}
}

// Name returns the name of the channel.
func (e *EmailChannel) Name() string {
	return "email"
}

// IsEnabled returns whether the channel is enabled.
func (e *EmailChannel) IsEnabled() bool {
	return e.enabled
}

// Send sends an email with the given subject and plain-text body.
func (e *EmailChannel) Send(ctx context.Context, message, subject string) error {
	if !e.enabled {
		return errs.NewNotifyError(e.Name(), fmt.Errorf("channel disabled"))
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		e.from, e.to, subject, message)

	addr := fmt.Sprintf("%s:%d", e.smtpHost, e.smtpPort)

	var auth smtp.Auth
	if e.username != "" && e.password != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.smtpHost)
	}

	// Implicit TLS on port 465, STARTTLS/plain otherwise
	var err error
	if e.smtpPort == 465 {
		err = e.sendWithTLS(addr, auth, msg)
	} else {
		err = smtp.SendMail(addr, auth, e.from, []string{e.to}, []byte(msg))
	}
	if err != nil {
		return errs.NewNotifyError(e.Name(), err)
	}
	return nil
}

// sendWithTLS sends email using implicit TLS (port 465).
func (e *EmailChannel) sendWithTLS(addr string, auth smtp.Auth, msg string) error {
	tlsConfig := &tls.Config{
		ServerName: e.smtpHost,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("TLS dial failed: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.smtpHost)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth failed: %w", err)
		}
	}

	if err := client.Mail(e.from); err != nil {
		return fmt.Errorf("SMTP MAIL command failed: %w", err)
	}

	if err := client.Rcpt(e.to); err != nil {
		return fmt.Errorf("SMTP RCPT command failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA command failed: %w", err)
	}

	if _, err = w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("writing email body: %w", err)
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("closing email body: %w", err)
	}

	return client.Quit()
}
