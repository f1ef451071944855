package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/nexthire/server/internal/config"
	"github.com/nexthire/server/internal/logging"
)

// Sender delivers passcodes by email
type Sender interface {
	SendOTP(ctx context.Context, to, purpose, code string) error
}

// New returns an SMTP sender when a host is configured, otherwise a sender that only logs
func New(cfg config.SMTPConfig, logger *zap.Logger) Sender {
	if cfg.Host == "" {
		return &LogSender{logger: logger}
	}
	return NewSMTPSender(cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.From)
}

// SMTPSender sends through a gomail dialer
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates a sender for the given SMTP account
func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

func (s *SMTPSender) SendOTP(ctx context.Context, to, purpose, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(buildOTPMessage(s.from, to, purpose, code)); err != nil {
		return fmt.Errorf("failed to send otp email: %w", err)
	}
	return nil
}

func buildOTPMessage(from, to, purpose, code string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subjectFor(purpose))
	m.SetBody("text/plain", fmt.Sprintf("Your NextHire OTP is %s", code))
	return m
}

func subjectFor(purpose string) string {
	if purpose == "reset" {
		return "Your NextHire password reset code"
	}
	return "Your NextHire OTP"
}

// LogSender writes the code to the log. Used in development when SMTP is not configured.
type LogSender struct {
	logger *zap.Logger
}

func (s *LogSender) SendOTP(_ context.Context, to, purpose, code string) error {
	s.logger.Warn("smtp not configured, otp logged instead of sent",
		logging.Email(to), zap.String("purpose", purpose), zap.String("otp", code))
	return nil
}
