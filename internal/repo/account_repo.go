package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nexthire/server/internal/model"
)

// AccountRepo defines the interface for account repository operations
type AccountRepo interface {
	Create(ctx context.Context, acc *model.Account) error
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	GetByLogin(ctx context.Context, identifier string) (model.Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	List(ctx context.Context, role string) ([]model.Account, error)
}

type accountRepo struct {
	db *sql.DB
}

// NewAccountRepo creates a new AccountRepo instance
func NewAccountRepo(db *sql.DB) AccountRepo {
	return &accountRepo{db: db}
}

const accountColumns = `id, email, username, phone, password_hash, role, created_at`

func scanAccount(row interface{ Scan(...any) error }) (model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Email, &a.Username, &a.Phone, &a.PasswordHash, &a.Role, &a.CreatedAt)
	return a, err
}

// Create inserts the account and fills ID and CreatedAt. Duplicate email or username yields ErrConflict.
func (r *accountRepo) Create(ctx context.Context, acc *model.Account) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (email, username, phone, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, acc.Email, acc.Username, acc.Phone, acc.PasswordHash, acc.Role).Scan(&acc.ID, &acc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create account: %w", ErrConflict)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// GetByEmail retrieves an account by email
func (r *accountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	acc, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, fmt.Errorf("account %q: %w", email, ErrNotFound)
		}
		return model.Account{}, fmt.Errorf("query account: %w", err)
	}
	return acc, nil
}

// GetByLogin matches the identifier against email or username
func (r *accountRepo) GetByLogin(ctx context.Context, identifier string) (model.Account, error) {
	acc, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1 OR username = $1 LIMIT 1`, identifier))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, fmt.Errorf("account: %w", ErrNotFound)
		}
		return model.Account{}, fmt.Errorf("query account: %w", err)
	}
	return acc, nil
}

// UsernameExists reports whether the username is taken
func (r *accountRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// UpdatePassword replaces the stored hash for the email
func (r *accountRepo) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET password_hash = $2 WHERE email = $1`, email, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account %q: %w", email, ErrNotFound)
	}
	return nil
}

// List returns accounts ordered by creation; an empty role lists everyone.
func (r *accountRepo) List(ctx context.Context, role string) ([]model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	args := []any{}
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}
