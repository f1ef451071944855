package mail

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nexthire/server/internal/config"
)

func TestNew_PicksSender(t *testing.T) {
	assert.IsType(t, &LogSender{}, New(config.SMTPConfig{}, zap.NewNop()))
	assert.IsType(t, &SMTPSender{}, New(config.SMTPConfig{Host: "smtp.test", Port: 587}, zap.NewNop()))
}

func TestBuildOTPMessage(t *testing.T) {
	m := buildOTPMessage("noreply@nexthire.io", "a@b.io", "signup", "424242")
	assert.Equal(t, []string{"a@b.io"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Your NextHire OTP"}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "424242")

	reset := buildOTPMessage("x@y.io", "a@b.io", "reset", "1")
	assert.Equal(t, []string{"Your NextHire password reset code"}, reset.GetHeader("Subject"))
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := &LogSender{logger: zap.New(core)}

	require.NoError(t, s.SendOTP(context.Background(), "alice@example.com", "signup", "123456"))
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "a***@example.com", fields["email"])
	assert.Equal(t, "123456", fields["otp"])
}

func TestSMTPSender_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewSMTPSender("127.0.0.1", 1, "", "", "x@y.io").SendOTP(ctx, "a@b.io", "signup", "1")
	assert.ErrorIs(t, err, context.Canceled)
}
