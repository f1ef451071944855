package auth

import (
	"context"
	"errors"
)

var (
	// ErrOTPNotFound means no code was requested for the pair, or it was already consumed
	ErrOTPNotFound = errors.New("otp not found")
	// ErrOTPExpired means a matching code is past its expiry
	ErrOTPExpired = errors.New("otp expired")
	// ErrOTPInvalid means the code does not match
	ErrOTPInvalid = errors.New("invalid otp")
)

// OtpProvider defines the interface for OTP operations
type OtpProvider interface {
	RequestOTP(ctx context.Context, email, purpose string) (code string, err error)
	VerifyOTP(ctx context.Context, email, purpose, code string) error
}
