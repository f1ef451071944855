package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nexthire/server/internal/logging"
	"github.com/nexthire/server/internal/model"
	"github.com/nexthire/server/internal/repo"
)

const minPasswordLength = 6

var (
	// ErrAlreadyTaken is returned when the email or username is already registered
	ErrAlreadyTaken = errors.New("already taken")
	// ErrBadCredentials covers unknown login identifiers and wrong passwords
	ErrBadCredentials = errors.New("invalid credentials")
	// ErrInvalidInput marks request validation failures
	ErrInvalidInput = errors.New("invalid input")
)

// CodeSender delivers a plaintext passcode to an email address
type CodeSender interface {
	SendOTP(ctx context.Context, to, purpose, code string) error
}

// SignupInput is the verified-signup request
type SignupInput struct {
	Email    string
	OTP      string
	Password string
	Role     string
	Phone    string
}

// AuthService orchestrates authentication operations
type AuthService struct {
	otpProvider OtpProvider
	jwtService  *JWTService
	accountRepo repo.AccountRepo
	sender      CodeSender
	logger      *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	otpProvider OtpProvider,
	jwtService *JWTService,
	accountRepo repo.AccountRepo,
	sender CodeSender,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		otpProvider: otpProvider,
		jwtService:  jwtService,
		accountRepo: accountRepo,
		sender:      sender,
		logger:      logger,
	}
}

// SendOTP issues a code for (email, purpose) and mails it. Delivery failure is logged, not returned.
// The plaintext code is returned so dev mode can echo it.
func (s *AuthService) SendOTP(ctx context.Context, email, purpose string) (string, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if purpose == "" {
		purpose = model.PurposeSignup
	}
	if purpose != model.PurposeSignup && purpose != model.PurposeReset {
		return "", fmt.Errorf("%w: unknown purpose %q", ErrInvalidInput, purpose)
	}

	code, err := s.otpProvider.RequestOTP(ctx, email, purpose)
	if err != nil {
		return "", fmt.Errorf("request otp: %w", err)
	}

	if err := s.sender.SendOTP(ctx, email, purpose, code); err != nil {
		s.logger.Warn("otp delivery failed", logging.Email(email), zap.String("purpose", purpose), zap.Error(err))
	}
	return code, nil
}

// VerifySignup checks the signup code and creates the account with a derived unique username.
func (s *AuthService) VerifySignup(ctx context.Context, in SignupInput) (*model.Account, string, error) {
	email := normalizeEmail(in.Email)
	if email == "" || strings.TrimSpace(in.OTP) == "" {
		return nil, "", fmt.Errorf("%w: email and otp are required", ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength {
		return nil, "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = model.RoleCandidate
	}
	if role != model.RoleCandidate && role != model.RoleHR {
		return nil, "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}

	// Checked before verification so a duplicate signup does not burn the code.
	if _, err := s.accountRepo.GetByEmail(ctx, email); err == nil {
		return nil, "", ErrAlreadyTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, "", fmt.Errorf("lookup account: %w", err)
	}

	if err := s.otpProvider.VerifyOTP(ctx, email, model.PurposeSignup, in.OTP); err != nil {
		return nil, "", err
	}

	username, err := s.deriveUsername(ctx, email)
	if err != nil {
		return nil, "", err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}

	acc := &model.Account{
		Email:        email,
		Username:     username,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.accountRepo.Create(ctx, acc); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, "", ErrAlreadyTaken
		}
		return nil, "", fmt.Errorf("create account: %w", err)
	}

	token, err := s.jwtService.Sign(acc.Email, acc.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return acc, token, nil
}

// Login accepts an email or a username
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*model.Account, string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, "", ErrBadCredentials
	}
	if strings.Contains(identifier, "@") {
		identifier = normalizeEmail(identifier)
	}

	acc, err := s.accountRepo.GetByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, "", ErrBadCredentials
		}
		return nil, "", fmt.Errorf("lookup account: %w", err)
	}
	if !CheckPassword(acc.PasswordHash, password) {
		return nil, "", ErrBadCredentials
	}

	token, err := s.jwtService.Sign(acc.Email, acc.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return &acc, token, nil
}

// ResetPassword verifies a reset-purpose code and stores the new password hash
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if err := s.otpProvider.VerifyOTP(ctx, email, model.PurposeReset, code); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.accountRepo.UpdatePassword(ctx, email, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrBadCredentials
		}
		return err
	}
	return nil
}

// deriveUsername uses the email local part, then base1, base2, ... until one is free
func (s *AuthService) deriveUsername(ctx context.Context, email string) (string, error) {
	base := email
	if at := strings.Index(email, "@"); at > 0 {
		base = email[:at]
	}
	candidate := base
	for n := 1; ; n++ {
		taken, err := s.accountRepo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("derive username: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(n)
	}
}
