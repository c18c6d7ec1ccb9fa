package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Config holds SMTP settings. Sending is skipped unless Enabled is set.
type Config struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Sender delivers a single plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPSender struct {
	dialer dialer
	from   string
}

func NewSMTPSender(cfg Config) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// NewMessage builds the plain-text message the sender delivers.
func NewMessage(from, to, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to == "" {
		return fmt.Errorf("email: empty recipient")
	}
	if err := s.dialer.DialAndSend(NewMessage(s.from, to, subject, body)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
