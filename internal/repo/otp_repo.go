package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nexthire/server/internal/model"
)

// OtpRepo defines the interface for one-time passcode storage
type OtpRepo interface {
	Replace(ctx context.Context, otp model.OTP) error
	Get(ctx context.Context, email, purpose string) (model.OTP, error)
	Delete(ctx context.Context, email, purpose string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type otpRepo struct {
	db *sql.DB
}

// NewOtpRepo creates a new OtpRepo instance
func NewOtpRepo(db *sql.DB) OtpRepo {
	return &otpRepo{db: db}
}

// Replace drops any existing code for (email, purpose) and inserts the new one in one transaction,
// so at most one code is ever active per pair.
func (r *otpRepo) Replace(ctx context.Context, otp model.OTP) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Serialize concurrent requests for the same pair; released on COMMIT/ROLLBACK.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(2, hashtext($1 || ':' || $2))`, otp.Email, otp.Purpose); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM otps WHERE email = $1 AND purpose = $2`, otp.Email, otp.Purpose); err != nil {
		return fmt.Errorf("delete previous otp: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO otps (email, purpose, code_hash, expires_at)
		VALUES ($1, $2, $3, $4)
	`, otp.Email, otp.Purpose, otp.CodeHash, otp.ExpiresAt); err != nil {
		return fmt.Errorf("insert otp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get returns the stored code for the pair regardless of expiry; callers decide what expired means.
func (r *otpRepo) Get(ctx context.Context, email, purpose string) (model.OTP, error) {
	var otp model.OTP
	err := r.db.QueryRowContext(ctx, `
		SELECT email, purpose, code_hash, expires_at, created_at
		FROM otps
		WHERE email = $1 AND purpose = $2
	`, email, purpose).Scan(&otp.Email, &otp.Purpose, &otp.CodeHash, &otp.ExpiresAt, &otp.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.OTP{}, fmt.Errorf("otp: %w", ErrNotFound)
		}
		return model.OTP{}, fmt.Errorf("query otp: %w", err)
	}
	return otp, nil
}

// Delete consumes the code for the pair
func (r *otpRepo) Delete(ctx context.Context, email, purpose string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE email = $1 AND purpose = $2`, email, purpose); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}

// DeleteExpired removes codes whose expiry is before now and returns how many were dropped
func (r *otpRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired otps: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
