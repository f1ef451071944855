package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/nexthire/server/internal/model"
	"github.com/nexthire/server/internal/repo"
)

const (
	otpLength = 6
	devOTP    = "123456"
)

// OtpService implements OtpProvider on top of OtpRepo. Only SHA-256(email:code:salt) is stored.
type OtpService struct {
	otpRepo repo.OtpRepo
	salt    string
	ttl     time.Duration
	devMode bool
	now     func() time.Time
}

// NewOtpService creates a new OTP provider. In dev mode every code is 123456.
func NewOtpService(otpRepo repo.OtpRepo, salt string, ttl time.Duration, devMode bool) *OtpService {
	return &OtpService{
		otpRepo: otpRepo,
		salt:    salt,
		ttl:     ttl,
		devMode: devMode,
		now:     time.Now,
	}
}

// RequestOTP issues a fresh code for (email, purpose), replacing any earlier one.
// The plaintext code is returned for delivery and never stored.
func (s *OtpService) RequestOTP(ctx context.Context, email, purpose string) (string, error) {
	email = normalizeEmail(email)

	code := devOTP
	if !s.devMode {
		var err error
		if code, err = generateOTPCode(); err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
	}

	otp := model.OTP{
		Email:     email,
		Purpose:   purpose,
		CodeHash:  hashOTPHex(email, code, s.salt),
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.otpRepo.Replace(ctx, otp); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// VerifyOTP checks expiry before the code, so an expired code reports ErrOTPExpired even when it matches.
// A successful check consumes the code.
func (s *OtpService) VerifyOTP(ctx context.Context, email, purpose, code string) error {
	email = normalizeEmail(email)

	otp, err := s.otpRepo.Get(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrOTPNotFound
		}
		return fmt.Errorf("load otp: %w", err)
	}

	if s.now().After(otp.ExpiresAt) {
		return ErrOTPExpired
	}

	stored, err := hex.DecodeString(otp.CodeHash)
	if err != nil {
		return fmt.Errorf("decode otp hash: %w", err)
	}
	if !constantTimeCompare(hashOTPBytes(email, strings.TrimSpace(code), s.salt), stored) {
		return ErrOTPInvalid
	}

	if err := s.otpRepo.Delete(ctx, email, purpose); err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	return nil
}

func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpLength, n.Int64()), nil
}

// hashOTPHex returns SHA-256(email:code:salt) as hex for DB storage
func hashOTPHex(email, code, salt string) string {
	return hex.EncodeToString(hashOTPBytes(email, code, salt))
}

func hashOTPBytes(email, code, salt string) []byte {
	hash := sha256.Sum256([]byte(email + ":" + code + ":" + salt))
	return hash[:]
}

func constantTimeCompare(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
