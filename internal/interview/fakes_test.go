package interview

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexthire/server/internal/llm"
	"github.com/nexthire/server/internal/model"
	"github.com/nexthire/server/internal/prompts"
	"github.com/nexthire/server/internal/repo"
)

type memSessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]model.InterviewSession
	turns    map[uuid.UUID][]model.Turn
	reports  map[uuid.UUID]model.Report
	upserts  int
	nextID   int64
}

func newMemSessions() *memSessions {
	return &memSessions{
		sessions: map[uuid.UUID]model.InterviewSession{},
		turns:    map[uuid.UUID][]model.Turn{},
		reports:  map[uuid.UUID]model.Report{},
	}
}

func (m *memSessions) Create(_ context.Context, s *model.InterviewSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.CreatedAt = time.Now()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memSessions) Get(_ context.Context, id uuid.UUID) (model.InterviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return model.InterviewSession{}, repo.ErrNotFound
	}
	return s, nil
}

func (m *memSessions) UpdateState(_ context.Context, id uuid.UUID, d model.Difficulty, st model.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return repo.ErrNotFound
	}
	s.Difficulty, s.Status = d, st
	m.sessions[id] = s
	return nil
}

func (m *memSessions) AddTurn(_ context.Context, t *model.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	t.CreatedAt = time.Now()
	m.turns[t.SessionID] = append(m.turns[t.SessionID], *t)
	return nil
}

func (m *memSessions) ListTurns(_ context.Context, id uuid.UUID) ([]model.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Turn(nil), m.turns[id]...), nil
}

func (m *memSessions) UpsertReport(_ context.Context, r *model.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	r.CreatedAt = time.Now()
	m.reports[r.SessionID] = *r
	return nil
}

func (m *memSessions) GetReport(_ context.Context, id uuid.UUID) (model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return model.Report{}, repo.ErrNotFound
	}
	return r, nil
}

func (m *memSessions) ListReports(_ context.Context, owner string, kind model.SessionKind) ([]model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Report
	for id, r := range m.reports {
		if s := m.sessions[id]; s.Owner == owner && s.Kind == kind {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memSessions) BestScore(ctx context.Context, owner string, kind model.SessionKind) (int, error) {
	reports, _ := m.ListReports(ctx, owner, kind)
	best := 0
	for _, r := range reports {
		if r.FinalScore > best {
			best = r.FinalScore
		}
	}
	return best, nil
}

type memRecords struct {
	mu      sync.Mutex
	records []model.InterviewRecord
}

func (m *memRecords) Add(_ context.Context, rec *model.InterviewRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.CreatedAt = time.Now()
	m.records = append(m.records, *rec)
	return nil
}

func (m *memRecords) List(_ context.Context, email string) ([]model.InterviewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.InterviewRecord
	for _, r := range m.records {
		if r.Email == email {
			out = append(out, r)
		}
	}
	return out, nil
}

// scriptedProvider answers by prompt kind: question, evaluation or report
type scriptedProvider struct {
	question string
	evaluate string
	report   string
	err      error
	calls    int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	last := req.Messages[len(req.Messages)-1].Content
	switch {
	case strings.Contains(last, "improved_answer"):
		return p.evaluate, nil
	case strings.Contains(last, "TRANSCRIPT"):
		return p.report, nil
	default:
		return p.question, nil
	}
}

type engineFixture struct {
	engine   *Engine
	sessions *memSessions
	records  *memRecords
	store    *MemoryStore
}

func newFixture(t *testing.T, provider llm.Provider) engineFixture {
	t.Helper()
	pm, err := prompts.NewManager()
	require.NoError(t, err)

	f := engineFixture{
		sessions: newMemSessions(),
		records:  &memRecords{},
		store:    NewMemoryStore(),
	}
	f.engine = NewEngine(f.sessions, f.records, f.store, provider, pm, Ladder{RaiseAt: 8, LowerAt: 4}, zap.NewNop())
	return f
}
