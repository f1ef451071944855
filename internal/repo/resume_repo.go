package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nexthire/server/internal/model"
)

// ResumeRepo tracks uploaded resume files and their model analyses
type ResumeRepo interface {
	SetUpload(ctx context.Context, email, filename string) error
	GetUpload(ctx context.Context, email string) (model.Resume, error)
	AddAnalysis(ctx context.Context, a *model.ResumeAnalysis) error
	ListAnalyses(ctx context.Context, email string) ([]model.ResumeAnalysis, error)
	LatestScore(ctx context.Context, email string) (int, error)
}

type resumeRepo struct {
	db *sql.DB
}

// NewResumeRepo creates a new ResumeRepo instance
func NewResumeRepo(db *sql.DB) ResumeRepo {
	return &resumeRepo{db: db}
}

func (r *resumeRepo) SetUpload(ctx context.Context, email, filename string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO resumes (email, filename) VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET filename = EXCLUDED.filename, uploaded_at = now()
	`, email, filename)
	if err != nil {
		return fmt.Errorf("set resume upload: %w", err)
	}
	return nil
}

func (r *resumeRepo) GetUpload(ctx context.Context, email string) (model.Resume, error) {
	var res model.Resume
	err := r.db.QueryRowContext(ctx, `
		SELECT email, filename, uploaded_at FROM resumes WHERE email = $1
	`, email).Scan(&res.Email, &res.Filename, &res.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Resume{}, fmt.Errorf("resume for %q: %w", email, ErrNotFound)
		}
		return model.Resume{}, fmt.Errorf("query resume: %w", err)
	}
	return res, nil
}

func (r *resumeRepo) AddAnalysis(ctx context.Context, a *model.ResumeAnalysis) error {
	breakdown, err := jsonText(a.Breakdown)
	if err != nil {
		return fmt.Errorf("encode breakdown: %w", err)
	}
	reasons, err := jsonText(a.Reasons)
	if err != nil {
		return fmt.Errorf("encode reasons: %w", err)
	}
	analysis, err := jsonText(a.Analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO resume_analyses (email, ats_score, breakdown, reasons, analysis)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, a.Email, a.ATSScore, breakdown, reasons, analysis).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert resume analysis: %w", err)
	}
	return nil
}

// ListAnalyses returns the history for the email, newest first. The full analysis body is omitted.
func (r *resumeRepo) ListAnalyses(ctx context.Context, email string) ([]model.ResumeAnalysis, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, ats_score, breakdown, reasons, created_at
		FROM resume_analyses
		WHERE email = $1
		ORDER BY created_at DESC, id DESC
	`, email)
	if err != nil {
		return nil, fmt.Errorf("list resume analyses: %w", err)
	}
	defer rows.Close()

	var out []model.ResumeAnalysis
	for rows.Next() {
		var (
			a                  model.ResumeAnalysis
			breakdown, reasons []byte
		)
		if err := rows.Scan(&a.ID, &a.Email, &a.ATSScore, &breakdown, &reasons, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan resume analysis: %w", err)
		}
		if err := json.Unmarshal(breakdown, &a.Breakdown); err != nil {
			return nil, fmt.Errorf("decode breakdown: %w", err)
		}
		if err := json.Unmarshal(reasons, &a.Reasons); err != nil {
			return nil, fmt.Errorf("decode reasons: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LatestScore returns the most recent ATS score, 0 when the candidate has none
func (r *resumeRepo) LatestScore(ctx context.Context, email string) (int, error) {
	var score int
	err := r.db.QueryRowContext(ctx, `
		SELECT ats_score FROM resume_analyses
		WHERE email = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, email).Scan(&score)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("latest resume score: %w", err)
	}
	return score, nil
}
