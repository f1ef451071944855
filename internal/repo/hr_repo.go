package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nexthire/server/internal/model"
)

// HRRepo stores HR-side annotations keyed by candidate email
type HRRepo interface {
	SetStatus(ctx context.Context, email, status string) error
	GetStatus(ctx context.Context, email string) (string, error)
	AddNote(ctx context.Context, n *model.Note) error
	ListNotes(ctx context.Context, email string) ([]model.Note, error)
}

type hrRepo struct {
	db *sql.DB
}

// NewHRRepo creates a new HRRepo instance
func NewHRRepo(db *sql.DB) HRRepo {
	return &hrRepo{db: db}
}

// SetStatus is last-write-wins
func (r *hrRepo) SetStatus(ctx context.Context, email, status string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO hr_status (email, status) VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET status = EXCLUDED.status, updated_at = now()
	`, email, status)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// GetStatus returns ErrNotFound when HR never touched the candidate
func (r *hrRepo) GetStatus(ctx context.Context, email string) (string, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM hr_status WHERE email = $1`, email).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("status for %q: %w", email, ErrNotFound)
		}
		return "", fmt.Errorf("query status: %w", err)
	}
	return status, nil
}

func (r *hrRepo) AddNote(ctx context.Context, n *model.Note) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO hr_notes (email, note) VALUES ($1, $2) RETURNING created_at
	`, n.Email, n.Note).Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// ListNotes returns notes newest first
func (r *hrRepo) ListNotes(ctx context.Context, email string) ([]model.Note, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT email, note, created_at FROM hr_notes WHERE email = $1 ORDER BY created_at DESC, id DESC
	`, email)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var out []model.Note
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.Email, &n.Note, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
