package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nexthire/server/internal/model"
	"github.com/nexthire/server/internal/repo"
)

type memOtpRepo struct {
	mu   sync.Mutex
	rows map[string]model.OTP
}

func newMemOtpRepo() *memOtpRepo {
	return &memOtpRepo{rows: map[string]model.OTP{}}
}

func otpKey(email, purpose string) string { return email + "|" + purpose }

func (r *memOtpRepo) Replace(_ context.Context, otp model.OTP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	otp.CreatedAt = time.Now()
	r.rows[otpKey(otp.Email, otp.Purpose)] = otp
	return nil
}

func (r *memOtpRepo) Get(_ context.Context, email, purpose string) (model.OTP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	otp, ok := r.rows[otpKey(email, purpose)]
	if !ok {
		return model.OTP{}, fmt.Errorf("otp: %w", repo.ErrNotFound)
	}
	return otp, nil
}

func (r *memOtpRepo) Delete(_ context.Context, email, purpose string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, otpKey(email, purpose))
	return nil
}

func (r *memOtpRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, otp := range r.rows {
		if otp.ExpiresAt.Before(now) {
			delete(r.rows, k)
			n++
		}
	}
	return n, nil
}

type memAccountRepo struct {
	mu       sync.Mutex
	accounts []model.Account
}

func (r *memAccountRepo) Create(_ context.Context, acc *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == acc.Email || a.Username == acc.Username {
			return fmt.Errorf("create account: %w", repo.ErrConflict)
		}
	}
	acc.ID = int64(len(r.accounts) + 1)
	acc.CreatedAt = time.Now()
	r.accounts = append(r.accounts, *acc)
	return nil
}

func (r *memAccountRepo) GetByEmail(_ context.Context, email string) (model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return model.Account{}, repo.ErrNotFound
}

func (r *memAccountRepo) GetByLogin(_ context.Context, identifier string) (model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == identifier || a.Username == identifier {
			return a, nil
		}
	}
	return model.Account{}, repo.ErrNotFound
}

func (r *memAccountRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *memAccountRepo) UpdatePassword(_ context.Context, email, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.accounts {
		if r.accounts[i].Email == email {
			r.accounts[i].PasswordHash = hash
			return nil
		}
	}
	return repo.ErrNotFound
}

func (r *memAccountRepo) List(_ context.Context, role string) ([]model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Account
	for _, a := range r.accounts {
		if role == "" || a.Role == role {
			out = append(out, a)
		}
	}
	return out, nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func (s *recordingSender) SendOTP(_ context.Context, to, purpose, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent == nil {
		s.sent = map[string]string{}
	}
	s.sent[otpKey(to, purpose)] = code
	return s.err
}

func (s *recordingSender) last(email, purpose string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[otpKey(email, purpose)]
}
