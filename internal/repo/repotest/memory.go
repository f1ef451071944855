// Package repotest provides in-memory repositories for handler and service tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexthire/server/internal/model"
	"github.com/nexthire/server/internal/repo"
)

// Store backs every in-memory repository with one mutex-guarded dataset
type Store struct {
	mu       sync.Mutex
	clock    time.Time
	seq      int64
	accounts []model.Account
	uploads  map[string]model.Resume
	analyses []model.ResumeAnalysis
	sessions map[uuid.UUID]model.InterviewSession
	turns    map[uuid.UUID][]model.Turn
	reports  map[uuid.UUID]model.Report
	records  []model.InterviewRecord
	status   map[string]string
	notes    []model.Note
}

func New() *Store {
	return &Store{
		clock:    time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		uploads:  map[string]model.Resume{},
		sessions: map[uuid.UUID]model.InterviewSession{},
		turns:    map[uuid.UUID][]model.Turn{},
		reports:  map[uuid.UUID]model.Report{},
		status:   map[string]string{},
	}
}

// tick returns a strictly increasing timestamp so "newest first" ordering is deterministic
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *Store) Accounts() repo.AccountRepo { return accounts{s} }
func (s *Store) Resumes() repo.ResumeRepo   { return resumes{s} }
func (s *Store) Sessions() repo.SessionRepo { return sessions{s} }
func (s *Store) Records() repo.RecordRepo   { return records{s} }
func (s *Store) HR() repo.HRRepo            { return hr{s} }

type accounts struct{ s *Store }

func (a accounts) Create(_ context.Context, acc *model.Account) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	for _, x := range a.s.accounts {
		if x.Email == acc.Email || x.Username == acc.Username {
			return repo.ErrConflict
		}
	}
	a.s.seq++
	acc.ID = a.s.seq
	acc.CreatedAt = a.s.tick()
	a.s.accounts = append(a.s.accounts, *acc)
	return nil
}

func (a accounts) GetByEmail(_ context.Context, email string) (model.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	for _, x := range a.s.accounts {
		if x.Email == email {
			return x, nil
		}
	}
	return model.Account{}, repo.ErrNotFound
}

func (a accounts) GetByLogin(_ context.Context, identifier string) (model.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	for _, x := range a.s.accounts {
		if x.Email == identifier || x.Username == identifier {
			return x, nil
		}
	}
	return model.Account{}, repo.ErrNotFound
}

func (a accounts) UsernameExists(_ context.Context, username string) (bool, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	for _, x := range a.s.accounts {
		if x.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (a accounts) UpdatePassword(_ context.Context, email, hash string) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	for i := range a.s.accounts {
		if a.s.accounts[i].Email == email {
			a.s.accounts[i].PasswordHash = hash
			return nil
		}
	}
	return repo.ErrNotFound
}

func (a accounts) List(_ context.Context, role string) ([]model.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	var out []model.Account
	for _, x := range a.s.accounts {
		if role == "" || x.Role == role {
			out = append(out, x)
		}
	}
	return out, nil
}

type resumes struct{ s *Store }

func (r resumes) SetUpload(_ context.Context, email, filename string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.uploads[email] = model.Resume{Email: email, Filename: filename, UploadedAt: r.s.tick()}
	return nil
}

func (r resumes) GetUpload(_ context.Context, email string) (model.Resume, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.uploads[email]
	if !ok {
		return model.Resume{}, repo.ErrNotFound
	}
	return u, nil
}

func (r resumes) AddAnalysis(_ context.Context, a *model.ResumeAnalysis) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.seq++
	a.ID = r.s.seq
	a.CreatedAt = r.s.tick()
	r.s.analyses = append(r.s.analyses, *a)
	return nil
}

func (r resumes) ListAnalyses(_ context.Context, email string) ([]model.ResumeAnalysis, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.ResumeAnalysis
	for i := len(r.s.analyses) - 1; i >= 0; i-- {
		if a := r.s.analyses[i]; a.Email == email {
			a.Analysis = nil
			out = append(out, a)
		}
	}
	return out, nil
}

func (r resumes) LatestScore(ctx context.Context, email string) (int, error) {
	list, _ := r.ListAnalyses(ctx, email)
	if len(list) == 0 {
		return 0, nil
	}
	return list[0].ATSScore, nil
}

type sessions struct{ s *Store }

func (m sessions) Create(_ context.Context, sess *model.InterviewSession) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sess.CreatedAt = m.s.tick()
	m.s.sessions[sess.ID] = *sess
	return nil
}

func (m sessions) Get(_ context.Context, id uuid.UUID) (model.InterviewSession, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sess, ok := m.s.sessions[id]
	if !ok {
		return model.InterviewSession{}, repo.ErrNotFound
	}
	return sess, nil
}

func (m sessions) UpdateState(_ context.Context, id uuid.UUID, d model.Difficulty, st model.SessionStatus) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	sess, ok := m.s.sessions[id]
	if !ok {
		return repo.ErrNotFound
	}
	sess.Difficulty, sess.Status = d, st
	m.s.sessions[id] = sess
	return nil
}

func (m sessions) AddTurn(_ context.Context, t *model.Turn) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.seq++
	t.ID = m.s.seq
	t.CreatedAt = m.s.tick()
	m.s.turns[t.SessionID] = append(m.s.turns[t.SessionID], *t)
	return nil
}

func (m sessions) ListTurns(_ context.Context, id uuid.UUID) ([]model.Turn, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]model.Turn(nil), m.s.turns[id]...), nil
}

func (m sessions) UpsertReport(_ context.Context, r *model.Report) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r.CreatedAt = m.s.tick()
	m.s.reports[r.SessionID] = *r
	return nil
}

func (m sessions) GetReport(_ context.Context, id uuid.UUID) (model.Report, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.reports[id]
	if !ok {
		return model.Report{}, repo.ErrNotFound
	}
	return r, nil
}

func (m sessions) ListReports(_ context.Context, owner string, kind model.SessionKind) ([]model.Report, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Report
	for id, r := range m.s.reports {
		if sess := m.s.sessions[id]; sess.Owner == owner && sess.Kind == kind {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m sessions) BestScore(ctx context.Context, owner string, kind model.SessionKind) (int, error) {
	list, _ := m.ListReports(ctx, owner, kind)
	best := 0
	for _, r := range list {
		if r.FinalScore > best {
			best = r.FinalScore
		}
	}
	return best, nil
}

type records struct{ s *Store }

func (m records) Add(_ context.Context, rec *model.InterviewRecord) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	rec.CreatedAt = m.s.tick()
	for i := range m.s.records {
		if m.s.records[i].SessionID == rec.SessionID {
			m.s.records[i] = *rec
			return nil
		}
	}
	m.s.records = append(m.s.records, *rec)
	return nil
}

func (m records) List(_ context.Context, email string) ([]model.InterviewRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.InterviewRecord
	for i := len(m.s.records) - 1; i >= 0; i-- {
		if m.s.records[i].Email == email {
			out = append(out, m.s.records[i])
		}
	}
	return out, nil
}

type hr struct{ s *Store }

func (m hr) SetStatus(_ context.Context, email, status string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.status[email] = status
	return nil
}

func (m hr) GetStatus(_ context.Context, email string) (string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	st, ok := m.s.status[email]
	if !ok {
		return "", repo.ErrNotFound
	}
	return st, nil
}

func (m hr) AddNote(_ context.Context, n *model.Note) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	n.CreatedAt = m.s.tick()
	m.s.notes = append(m.s.notes, *n)
	return nil
}

func (m hr) ListNotes(_ context.Context, email string) ([]model.Note, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Note
	for i := len(m.s.notes) - 1; i >= 0; i-- {
		if m.s.notes[i].Email == email {
			out = append(out, m.s.notes[i])
		}
	}
	return out, nil
}
