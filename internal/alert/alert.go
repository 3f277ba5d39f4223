package alert

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("rewardfeed/internal/alert")

// Noop drops every notification, it is used when no smtp server is configured.
type Noop struct{}

func (Noop) Notify(context.Context, string, string) error {
	return nil
}

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

// Enabled reports whether enough is configured to send mail.
func (c SmtpConfig) Enabled() bool {
	return c.Server != "" && len(c.To) > 0
}

func (c SmtpConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.Port <= 0 {
		return fmt.Errorf("alert: smtp port must be positive")
	}
	if c.EmailAddress == "" {
		return fmt.Errorf("alert: smtp email_address is required")
	}
	return nil
}

// Smtp mails failure notifications to a fixed list of recipients.
type Smtp struct {
	config SmtpConfig
}

func NewSmtp(config SmtpConfig) Smtp {
	return Smtp{config: config}
}

func (s Smtp) message(subject, body string) *email.Email {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("rewardfeed <%s>", s.config.EmailAddress)
	mail.To = s.config.To
	mail.Subject = subject
	mail.Text = []byte(body)
	return mail
}

func (s Smtp) Notify(ctx context.Context, subject, body string) error {
	_, span := tracer.Start(ctx, "Notify")
	defer span.End()

	mail := s.message(subject, body)
	addr := fmt.Sprintf("%s:%d", s.config.Server, s.config.Port)

	err := mail.Send(
		addr,
		smtp.PlainAuth("", s.config.EmailAddress, s.config.Password, s.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return fmt.Errorf("send alert: %w", err)
	}
	return nil
}
