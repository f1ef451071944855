package hr

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/nexthire/server/internal/logging"
	"github.com/nexthire/server/internal/model"
	"github.com/nexthire/server/internal/repo"
	"github.com/nexthire/server/internal/scoring"
)

var (
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrEmptyNote         = errors.New("note must not be empty")
)

// Profile is the full HR view of one candidate
type Profile struct {
	model.Candidate
	ResumeURL        string                  `json:"resume_url,omitempty"`
	InterviewReports []model.InterviewRecord `json:"interview_reports"`
	MockReports      []model.Report          `json:"mock_reports"`
	ResumeHistory    []model.ResumeAnalysis  `json:"resume_history"`
	Notes            []model.Note            `json:"notes"`
	Timeline         []string                `json:"timeline"`
}

// Service backs the HR dashboard
type Service struct {
	accounts   repo.AccountRepo
	resumes    repo.ResumeRepo
	sessions   repo.SessionRepo
	records    repo.RecordRepo
	hr         repo.HRRepo
	aggregator *scoring.Aggregator
	logger     *zap.Logger
}

func NewService(accounts repo.AccountRepo, resumes repo.ResumeRepo, sessions repo.SessionRepo, records repo.RecordRepo, hrRepo repo.HRRepo, aggregator *scoring.Aggregator, logger *zap.Logger) *Service {
	return &Service{
		accounts:   accounts,
		resumes:    resumes,
		sessions:   sessions,
		records:    records,
		hr:         hrRepo,
		aggregator: aggregator,
		logger:     logger,
	}
}

// List returns candidate accounts with scores, filtered and ranked
func (s *Service) List(ctx context.Context, f scoring.Filter) ([]model.Candidate, error) {
	accounts, err := s.accounts.List(ctx, model.RoleCandidate)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	cands, err := s.aggregator.SummarizeAll(ctx, accounts)
	if err != nil {
		return nil, err
	}
	return scoring.FilterSort(cands, f), nil
}

// Candidate returns one candidate's summary row
func (s *Service) Candidate(ctx context.Context, email string) (model.Candidate, error) {
	acc, err := s.account(ctx, email)
	if err != nil {
		return model.Candidate{}, err
	}
	return s.aggregator.Summarize(ctx, acc)
}

// Profile assembles reports, notes and the progress timeline
func (s *Service) Profile(ctx context.Context, email string) (Profile, error) {
	acc, err := s.account(ctx, email)
	if err != nil {
		return Profile{}, err
	}
	cand, err := s.aggregator.Summarize(ctx, acc)
	if err != nil {
		return Profile{}, err
	}

	p := Profile{Candidate: cand}
	if cand.Resume != "" {
		p.ResumeURL = "/resume/" + url.PathEscape(cand.Resume)
	}
	if p.InterviewReports, err = s.records.List(ctx, acc.Email); err != nil {
		return Profile{}, fmt.Errorf("interview records: %w", err)
	}
	if p.MockReports, err = s.sessions.ListReports(ctx, acc.Email, model.KindMock); err != nil {
		return Profile{}, fmt.Errorf("mock reports: %w", err)
	}
	if p.ResumeHistory, err = s.resumes.ListAnalyses(ctx, acc.Email); err != nil {
		return Profile{}, fmt.Errorf("resume history: %w", err)
	}
	if p.Notes, err = s.hr.ListNotes(ctx, acc.Email); err != nil {
		return Profile{}, fmt.Errorf("notes: %w", err)
	}
	p.Timeline = timeline(p)
	nonNil(&p)
	return p, nil
}

// SetStatus records the candidate's pipeline state; the last write wins
func (s *Service) SetStatus(ctx context.Context, email, state string) error {
	state = strings.ToLower(strings.TrimSpace(state))
	if !model.ValidCandidateStatus(state) {
		return ErrInvalidStatus
	}
	acc, err := s.account(ctx, email)
	if err != nil {
		return err
	}
	if err := s.hr.SetStatus(ctx, acc.Email, state); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	s.logger.Info("candidate status changed", logging.Email(acc.Email), zap.String("status", state))
	return nil
}

// AddNote appends an HR note
func (s *Service) AddNote(ctx context.Context, email, note string) (model.Note, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return model.Note{}, ErrEmptyNote
	}
	acc, err := s.account(ctx, email)
	if err != nil {
		return model.Note{}, err
	}
	n := model.Note{Email: acc.Email, Note: note}
	if err := s.hr.AddNote(ctx, &n); err != nil {
		return model.Note{}, fmt.Errorf("add note: %w", err)
	}
	return n, nil
}

func (s *Service) account(ctx context.Context, email string) (model.Account, error) {
	acc, err := s.accounts.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repo.ErrNotFound) {
		return model.Account{}, ErrCandidateNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("get account: %w", err)
	}
	return acc, nil
}

func timeline(p Profile) []string {
	var t []string
	if p.Resume != "" {
		t = append(t, "Resume Uploaded")
	}
	if len(p.MockReports) > 0 {
		t = append(t, "Mock Interview Completed")
	}
	if len(p.InterviewReports) > 0 {
		t = append(t, "AI Interview Completed")
	}
	return append(t, "Current Status: "+titleCase(p.Status))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// nonNil keeps empty lists as [] in JSON
func nonNil(p *Profile) {
	if p.InterviewReports == nil {
		p.InterviewReports = []model.InterviewRecord{}
	}
	if p.MockReports == nil {
		p.MockReports = []model.Report{}
	}
	if p.ResumeHistory == nil {
		p.ResumeHistory = []model.ResumeAnalysis{}
	}
	if p.Notes == nil {
		p.Notes = []model.Note{}
	}
}
