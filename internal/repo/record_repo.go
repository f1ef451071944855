package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nexthire/server/internal/model"
)

// RecordRepo stores the per-candidate summaries of finished live interviews
type RecordRepo interface {
	Add(ctx context.Context, rec *model.InterviewRecord) error
	List(ctx context.Context, email string) ([]model.InterviewRecord, error)
}

type recordRepo struct {
	db *sql.DB
}

// NewRecordRepo creates a new RecordRepo instance
func NewRecordRepo(db *sql.DB) RecordRepo {
	return &recordRepo{db: db}
}

// Add stores the record; a repeated session id overwrites the earlier summary.
func (r *recordRepo) Add(ctx context.Context, rec *model.InterviewRecord) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO interview_records (email, session_id, score, tips, posture_score)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET
			score = EXCLUDED.score, tips = EXCLUDED.tips, posture_score = EXCLUDED.posture_score
		RETURNING created_at
	`, rec.Email, rec.SessionID, rec.Score, rec.Tips, rec.PostureScore).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert interview record: %w", err)
	}
	return nil
}

// List returns the candidate's records, newest first
func (r *recordRepo) List(ctx context.Context, email string) ([]model.InterviewRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT email, session_id, score, tips, posture_score, created_at
		FROM interview_records
		WHERE email = $1
		ORDER BY created_at DESC
	`, email)
	if err != nil {
		return nil, fmt.Errorf("list interview records: %w", err)
	}
	defer rows.Close()

	var out []model.InterviewRecord
	for rows.Next() {
		var rec model.InterviewRecord
		if err := rows.Scan(&rec.Email, &rec.SessionID, &rec.Score, &rec.Tips, &rec.PostureScore, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interview record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
