package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nexthire/server/internal/model"
)

// SessionRepo stores interview sessions, their turns and final reports
type SessionRepo interface {
	Create(ctx context.Context, s *model.InterviewSession) error
	Get(ctx context.Context, id uuid.UUID) (model.InterviewSession, error)
	UpdateState(ctx context.Context, id uuid.UUID, difficulty model.Difficulty, status model.SessionStatus) error
	AddTurn(ctx context.Context, t *model.Turn) error
	ListTurns(ctx context.Context, sessionID uuid.UUID) ([]model.Turn, error)
	UpsertReport(ctx context.Context, r *model.Report) error
	GetReport(ctx context.Context, sessionID uuid.UUID) (model.Report, error)
	ListReports(ctx context.Context, owner string, kind model.SessionKind) ([]model.Report, error)
	BestScore(ctx context.Context, owner string, kind model.SessionKind) (int, error)
}

type sessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo instance
func NewSessionRepo(db *sql.DB) SessionRepo {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, s *model.InterviewSession) error {
	skills, err := jsonText(s.Skills)
	if err != nil {
		return fmt.Errorf("encode skills: %w", err)
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO interview_sessions (id, owner, kind, skills, role, experience, difficulty, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, s.ID, s.Owner, string(s.Kind), skills, s.Role, s.Experience, string(s.Difficulty), string(s.Status)).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id uuid.UUID) (model.InterviewSession, error) {
	var (
		s          model.InterviewSession
		skills     []byte
		kind       string
		difficulty string
		status     string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, owner, kind, skills, role, experience, difficulty, status, created_at
		FROM interview_sessions
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Owner, &kind, &skills, &s.Role, &s.Experience, &difficulty, &status, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.InterviewSession{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return model.InterviewSession{}, fmt.Errorf("query session: %w", err)
	}
	if err := json.Unmarshal(skills, &s.Skills); err != nil {
		return model.InterviewSession{}, fmt.Errorf("decode skills: %w", err)
	}
	s.Kind = model.SessionKind(kind)
	s.Difficulty = model.Difficulty(difficulty)
	s.Status = model.SessionStatus(status)
	return s, nil
}

func (r *sessionRepo) UpdateState(ctx context.Context, id uuid.UUID, difficulty model.Difficulty, status model.SessionStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE interview_sessions SET difficulty = $2, status = $3 WHERE id = $1
	`, id, string(difficulty), string(status))
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *sessionRepo) AddTurn(ctx context.Context, t *model.Turn) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO interview_turns (session_id, skill, difficulty, question, answer, score, feedback, posture, posture_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, t.SessionID, t.Skill, string(t.Difficulty), t.Question, t.Answer, t.Score, t.Feedback, t.Posture, t.PostureScore).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (r *sessionRepo) ListTurns(ctx context.Context, sessionID uuid.UUID) ([]model.Turn, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, skill, difficulty, question, answer, score, feedback, posture, posture_score, created_at
		FROM interview_turns
		WHERE session_id = $1
		ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []model.Turn
	for rows.Next() {
		var t model.Turn
		var difficulty string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Skill, &difficulty, &t.Question, &t.Answer, &t.Score, &t.Feedback, &t.Posture, &t.PostureScore, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Difficulty = model.Difficulty(difficulty)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// UpsertReport writes the report keyed by session id; a second call replaces the first.
func (r *sessionRepo) UpsertReport(ctx context.Context, rep *model.Report) error {
	skillScores, err := jsonText(rep.SkillScores)
	if err != nil {
		return fmt.Errorf("encode skill scores: %w", err)
	}
	strengths, err := jsonText(rep.Strengths)
	if err != nil {
		return fmt.Errorf("encode strengths: %w", err)
	}
	improvements, err := jsonText(rep.Improvements)
	if err != nil {
		return fmt.Errorf("encode improvements: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO interview_reports (session_id, final_score, skill_scores, summary, strengths, improvements)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE SET
			final_score = EXCLUDED.final_score,
			skill_scores = EXCLUDED.skill_scores,
			summary = EXCLUDED.summary,
			strengths = EXCLUDED.strengths,
			improvements = EXCLUDED.improvements,
			created_at = now()
		RETURNING created_at
	`, rep.SessionID, rep.FinalScore, skillScores, rep.Summary, strengths, improvements).Scan(&rep.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert report: %w", err)
	}
	return nil
}

const reportColumns = `r.session_id, r.final_score, r.skill_scores, r.summary, r.strengths, r.improvements, r.created_at`

func scanReport(row interface{ Scan(...any) error }) (model.Report, error) {
	var (
		rep                                  model.Report
		skillScores, strengths, improvements []byte
	)
	if err := row.Scan(&rep.SessionID, &rep.FinalScore, &skillScores, &rep.Summary, &strengths, &improvements, &rep.CreatedAt); err != nil {
		return model.Report{}, err
	}
	if err := json.Unmarshal(skillScores, &rep.SkillScores); err != nil {
		return model.Report{}, fmt.Errorf("decode skill scores: %w", err)
	}
	if err := json.Unmarshal(strengths, &rep.Strengths); err != nil {
		return model.Report{}, fmt.Errorf("decode strengths: %w", err)
	}
	if err := json.Unmarshal(improvements, &rep.Improvements); err != nil {
		return model.Report{}, fmt.Errorf("decode improvements: %w", err)
	}
	return rep, nil
}

func (r *sessionRepo) GetReport(ctx context.Context, sessionID uuid.UUID) (model.Report, error) {
	rep, err := scanReport(r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM interview_reports r WHERE r.session_id = $1`, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Report{}, fmt.Errorf("report %s: %w", sessionID, ErrNotFound)
		}
		return model.Report{}, fmt.Errorf("query report: %w", err)
	}
	return rep, nil
}

// ListReports returns the owner's reports of the given kind, newest first
func (r *sessionRepo) ListReports(ctx context.Context, owner string, kind model.SessionKind) ([]model.Report, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM interview_reports r
		JOIN interview_sessions s ON s.id = r.session_id
		WHERE s.owner = $1 AND s.kind = $2
		ORDER BY r.created_at DESC
	`, owner, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []model.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// BestScore is the highest final score across the owner's reports of a kind, 0 when there are none
func (r *sessionRepo) BestScore(ctx context.Context, owner string, kind model.SessionKind) (int, error) {
	var best sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT MAX(r.final_score)
		FROM interview_reports r
		JOIN interview_sessions s ON s.id = r.session_id
		WHERE s.owner = $1 AND s.kind = $2
	`, owner, string(kind)).Scan(&best)
	if err != nil {
		return 0, fmt.Errorf("best score: %w", err)
	}
	return int(best.Int64), nil
}
