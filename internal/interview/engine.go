package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexthire/server/internal/llm"
	"github.com/nexthire/server/internal/metrics"
	"github.com/nexthire/server/internal/model"
	"github.com/nexthire/server/internal/prompts"
	"github.com/nexthire/server/internal/repo"
)

var (
	ErrSessionNotFound = errors.New("interview session not found")
	ErrSessionClosed   = errors.New("interview session already reported")
	ErrTurnInProgress  = errors.New("another answer for this session is being evaluated")
)

const (
	defaultSkill    = "general"
	defaultFeedback = "Could not analyze detailed feedback."
	defaultScore    = 5
)

// Evaluation is the model's verdict on one answer
type Evaluation struct {
	Score          int    `json:"score"`
	Feedback       string `json:"feedback"`
	ImprovedAnswer string `json:"improved_answer"`
	PostureScore   int    `json:"posture_score"`
}

func defaultEvaluation() Evaluation {
	return Evaluation{Score: defaultScore, Feedback: defaultFeedback, ImprovedAnswer: "N/A", PostureScore: defaultScore}
}

type narrative struct {
	Summary       string   `json:"summary"`
	Strengths     []string `json:"strengths"`
	Improvements  []string `json:"improvements"`
	SpokenSummary string   `json:"spoken_summary"`
}

type StartInput struct {
	Owner      string
	Kind       model.SessionKind
	Skills     []string
	Role       string
	Experience string
}

type StartResult struct {
	Session  model.InterviewSession
	Question string
	Skill    string
}

// AnswerInput carries one answer. Question and Skill default to what the session last asked.
type AnswerInput struct {
	SessionID uuid.UUID
	Owner     string
	Question  string
	Answer    string
	Skill     string
	Posture   string
}

type AnswerResult struct {
	Evaluation
	Skill          string           `json:"skill"`
	NextDifficulty model.Difficulty `json:"next_difficulty"`
	NextQuestion   string           `json:"next_question"`
	NextSkill      string           `json:"next_skill"`
}

type EndResult struct {
	Report model.Report
	Spoken string
}

// Engine drives interview sessions: question, answer, evaluation, difficulty, report.
type Engine struct {
	sessions repo.SessionRepo
	records  repo.RecordRepo
	store    SessionStore
	provider llm.Provider
	prompts  *prompts.Manager
	ladder   Ladder
	logger   *zap.Logger
}

// NewEngine wires an engine. provider may be nil, in which case every model call uses its fallback.
func NewEngine(sessions repo.SessionRepo, records repo.RecordRepo, store SessionStore, provider llm.Provider, pm *prompts.Manager, ladder Ladder, logger *zap.Logger) *Engine {
	return &Engine{
		sessions: sessions,
		records:  records,
		store:    store,
		provider: provider,
		prompts:  pm,
		ladder:   ladder,
		logger:   logger,
	}
}

// Start persists a new session at medium difficulty and returns its opening question.
func (e *Engine) Start(ctx context.Context, in StartInput) (StartResult, error) {
	skills := cleanSkills(in.Skills)
	if len(skills) == 0 {
		if role := strings.TrimSpace(in.Role); role != "" {
			skills = []string{role}
		} else {
			skills = []string{defaultSkill}
		}
	}
	kind := in.Kind
	if kind == "" {
		kind = model.KindMock
	}

	sess := model.InterviewSession{
		ID:         uuid.New(),
		Owner:      in.Owner,
		Kind:       kind,
		Skills:     skills,
		Role:       strings.TrimSpace(in.Role),
		Experience: strings.TrimSpace(in.Experience),
		Difficulty: model.DifficultyMedium,
		Status:     model.StatusCreated,
	}
	if err := e.sessions.Create(ctx, &sess); err != nil {
		return StartResult{}, fmt.Errorf("create session: %w", err)
	}

	live := Live{
		ID:         sess.ID,
		Owner:      sess.Owner,
		Kind:       sess.Kind,
		Skills:     sess.Skills,
		Role:       sess.Role,
		Experience: sess.Experience,
		Difficulty: sess.Difficulty,
		Skill:      skills[0],
	}
	live.Question = e.askQuestion(ctx, live, "")

	if err := e.sessions.UpdateState(ctx, sess.ID, sess.Difficulty, model.StatusAwaitingAnswer); err != nil {
		return StartResult{}, fmt.Errorf("update session state: %w", err)
	}
	sess.Status = model.StatusAwaitingAnswer
	if err := e.store.Save(ctx, live); err != nil {
		return StartResult{}, fmt.Errorf("save live session: %w", err)
	}

	metrics.InterviewSessions.WithLabelValues(string(kind)).Inc()
	e.logger.Info("interview started",
		zap.String("session_id", sess.ID.String()),
		zap.String("kind", string(kind)),
		zap.Strings("skills", skills))

	return StartResult{Session: sess, Question: live.Question, Skill: live.Skill}, nil
}

// SubmitAnswer evaluates one answer, records the turn, moves the difficulty ladder and
// asks the next question. Model failures fall back to defaults so the turn always completes.
func (e *Engine) SubmitAnswer(ctx context.Context, in AnswerInput) (AnswerResult, error) {
	live, err := e.load(ctx, in.SessionID, in.Owner)
	if err != nil {
		return AnswerResult{}, err
	}

	locked, err := e.store.Lock(ctx, in.SessionID)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("lock session: %w", err)
	}
	if !locked {
		return AnswerResult{}, ErrTurnInProgress
	}
	defer e.unlock(in.SessionID)

	// the live copy may predate an End on another connection
	sess, err := e.getSession(ctx, in.SessionID, in.Owner)
	if err != nil {
		return AnswerResult{}, err
	}
	if sess.Status == model.StatusReported {
		return AnswerResult{}, ErrSessionClosed
	}
	// a turn that held the lock before us has moved the ladder on
	if live, err = e.load(ctx, in.SessionID, in.Owner); err != nil {
		return AnswerResult{}, err
	}

	question := strings.TrimSpace(in.Question)
	if question == "" {
		question = live.Question
	}
	skill := strings.TrimSpace(in.Skill)
	if skill == "" {
		skill = live.Skill
	}
	if skill == "" {
		skill = live.Skills[0]
	}

	eval := e.evaluate(ctx, question, in.Answer, live.Difficulty, in.Posture)

	turn := model.Turn{
		SessionID:    live.ID,
		Skill:        skill,
		Difficulty:   live.Difficulty,
		Question:     question,
		Answer:       in.Answer,
		Score:        eval.Score,
		Feedback:     eval.Feedback,
		Posture:      in.Posture,
		PostureScore: eval.PostureScore,
	}
	if err := e.sessions.AddTurn(ctx, &turn); err != nil {
		return AnswerResult{}, fmt.Errorf("add turn: %w", err)
	}

	next := e.ladder.Next(live.Difficulty, eval.Score)
	live.Turns++
	live.Difficulty = next
	live.Skill = live.Skills[live.Turns%len(live.Skills)]
	live.Question = e.askQuestion(ctx, live, question)

	if err := e.sessions.UpdateState(ctx, live.ID, next, model.StatusAwaitingAnswer); err != nil {
		return AnswerResult{}, fmt.Errorf("update session state: %w", err)
	}
	if err := e.store.Save(ctx, live); err != nil {
		return AnswerResult{}, fmt.Errorf("save live session: %w", err)
	}
	metrics.InterviewTurns.WithLabelValues(string(next)).Inc()

	return AnswerResult{
		Evaluation:     eval,
		Skill:          skill,
		NextDifficulty: next,
		NextQuestion:   live.Question,
		NextSkill:      live.Skill,
	}, nil
}

// End builds and stores the final report and closes the session. Ending a session that
// is already reported returns the stored report.
func (e *Engine) End(ctx context.Context, id uuid.UUID, owner string) (EndResult, error) {
	sess, err := e.getSession(ctx, id, owner)
	if err != nil {
		return EndResult{}, err
	}
	if sess.Status == model.StatusReported {
		return e.reported(ctx, id)
	}

	locked, err := e.store.Lock(ctx, id)
	if err != nil {
		return EndResult{}, fmt.Errorf("lock session: %w", err)
	}
	if !locked {
		return EndResult{}, ErrTurnInProgress
	}
	defer e.unlock(id)

	// another End may have finished while we waited for the lock
	if sess, err = e.getSession(ctx, id, owner); err != nil {
		return EndResult{}, err
	}
	if sess.Status == model.StatusReported {
		return e.reported(ctx, id)
	}

	turns, err := e.sessions.ListTurns(ctx, id)
	if err != nil {
		return EndResult{}, fmt.Errorf("list turns: %w", err)
	}

	rep := BuildReport(id, turns)
	spoken := spokenSummary(rep)
	if len(turns) > 0 {
		if n, ok := e.narrate(ctx, rep, turns); ok {
			if n.Summary != "" {
				rep.Summary = n.Summary
			}
			if len(n.Strengths) > 0 {
				rep.Strengths = n.Strengths
			}
			if len(n.Improvements) > 0 {
				rep.Improvements = n.Improvements
			}
			if n.SpokenSummary != "" {
				spoken = n.SpokenSummary
			}
		}
	}

	if err := e.sessions.UpsertReport(ctx, &rep); err != nil {
		return EndResult{}, fmt.Errorf("store report: %w", err)
	}
	if err := e.sessions.UpdateState(ctx, id, sess.Difficulty, model.StatusReported); err != nil {
		return EndResult{}, fmt.Errorf("close session: %w", err)
	}

	if sess.Kind == model.KindLive {
		rec := model.InterviewRecord{
			Email:        sess.Owner,
			SessionID:    id,
			Score:        rep.FinalScore,
			Tips:         strings.Join(rep.Improvements, "; "),
			PostureScore: postureAverage(turns),
		}
		if err := e.records.Add(ctx, &rec); err != nil {
			return EndResult{}, fmt.Errorf("store interview record: %w", err)
		}
	}

	if err := e.store.Delete(ctx, id); err != nil {
		e.logger.Warn("failed to evict live session", zap.String("session_id", id.String()), zap.Error(err))
	}
	metrics.InterviewReports.WithLabelValues(string(sess.Kind)).Inc()
	e.logger.Info("interview reported",
		zap.String("session_id", id.String()),
		zap.Int("turns", len(turns)),
		zap.Int("final_score", rep.FinalScore))

	return EndResult{Report: rep, Spoken: spoken}, nil
}

func (e *Engine) reported(ctx context.Context, id uuid.UUID) (EndResult, error) {
	rep, err := e.sessions.GetReport(ctx, id)
	if err != nil {
		return EndResult{}, fmt.Errorf("get report: %w", err)
	}
	return EndResult{Report: rep, Spoken: spokenSummary(rep)}, nil
}

// Report returns the session's report, ending the session first if needed.
func (e *Engine) Report(ctx context.Context, id uuid.UUID, owner string) (model.Report, error) {
	res, err := e.End(ctx, id, owner)
	if err != nil {
		return model.Report{}, err
	}
	return res.Report, nil
}

// StoredReport returns an already generated report without ending the session
func (e *Engine) StoredReport(ctx context.Context, id uuid.UUID, owner string) (model.Report, error) {
	if _, err := e.getSession(ctx, id, owner); err != nil {
		return model.Report{}, err
	}
	rep, err := e.sessions.GetReport(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Report{}, ErrSessionNotFound
	}
	if err != nil {
		return model.Report{}, fmt.Errorf("get report: %w", err)
	}
	return rep, nil
}

func (e *Engine) getSession(ctx context.Context, id uuid.UUID, owner string) (model.InterviewSession, error) {
	sess, err := e.sessions.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.InterviewSession{}, ErrSessionNotFound
	}
	if err != nil {
		return model.InterviewSession{}, fmt.Errorf("get session: %w", err)
	}
	if owner != "" && !strings.EqualFold(sess.Owner, owner) {
		return model.InterviewSession{}, ErrSessionNotFound
	}
	return sess, nil
}

// load returns live state, rebuilding it from the database after a store miss.
func (e *Engine) load(ctx context.Context, id uuid.UUID, owner string) (Live, error) {
	live, err := e.store.Load(ctx, id)
	if err == nil {
		if owner != "" && !strings.EqualFold(live.Owner, owner) {
			return Live{}, ErrSessionNotFound
		}
		return live, nil
	}
	if !errors.Is(err, ErrNotCached) {
		e.logger.Warn("live store read failed, using database", zap.String("session_id", id.String()), zap.Error(err))
	}

	sess, err := e.getSession(ctx, id, owner)
	if err != nil {
		return Live{}, err
	}
	if sess.Status == model.StatusReported {
		return Live{}, ErrSessionClosed
	}
	turns, err := e.sessions.ListTurns(ctx, id)
	if err != nil {
		return Live{}, fmt.Errorf("list turns: %w", err)
	}

	skills := sess.Skills
	if len(skills) == 0 {
		skills = []string{defaultSkill}
	}
	live = Live{
		ID:         sess.ID,
		Owner:      sess.Owner,
		Kind:       sess.Kind,
		Skills:     skills,
		Role:       sess.Role,
		Experience: sess.Experience,
		Difficulty: sess.Difficulty,
		Turns:      len(turns),
		Skill:      skills[len(turns)%len(skills)],
	}
	if err := e.store.Save(ctx, live); err != nil {
		e.logger.Warn("failed to cache live session", zap.String("session_id", id.String()), zap.Error(err))
	}
	return live, nil
}

func (e *Engine) unlock(id uuid.UUID) {
	if err := e.store.Unlock(context.Background(), id); err != nil {
		e.logger.Warn("failed to unlock session", zap.String("session_id", id.String()), zap.Error(err))
	}
}

// FallbackQuestion is asked when the model cannot produce one
func FallbackQuestion(skill string, d model.Difficulty) string {
	return fmt.Sprintf("Explain %s (%s level).", skill, d)
}

func (e *Engine) askQuestion(ctx context.Context, live Live, previous string) string {
	fallback := FallbackQuestion(live.Skill, live.Difficulty)
	if e.provider == nil {
		return fallback
	}
	msgs, err := e.prompts.Build(prompts.Question, map[string]string{
		"Skill":      live.Skill,
		"Difficulty": string(live.Difficulty),
		"Role":       orNone(live.Role),
		"Experience": orNone(live.Experience),
		"Previous":   orNone(previous),
	})
	if err != nil {
		e.logger.Error("question prompt", zap.Error(err))
		return fallback
	}
	out, err := e.provider.Complete(ctx, llm.Request{Messages: msgs, MaxTokens: 120, Temperature: 0.3})
	if err != nil {
		metrics.ModelFallbacks.WithLabelValues("question").Inc()
		e.logger.Warn("question generation failed, using fallback", zap.String("session_id", live.ID.String()), zap.Error(err))
		return fallback
	}
	q := strings.Trim(strings.TrimSpace(out), `"`)
	if q == "" {
		return fallback
	}
	return q
}

func (e *Engine) evaluate(ctx context.Context, question, answer string, d model.Difficulty, posture string) Evaluation {
	if e.provider == nil {
		return defaultEvaluation()
	}
	msgs, err := e.prompts.Build(prompts.Evaluate, map[string]string{
		"Question":   question,
		"Answer":     answer,
		"Difficulty": string(d),
		"Posture":    orNone(posture),
	})
	if err != nil {
		e.logger.Error("evaluate prompt", zap.Error(err))
		return defaultEvaluation()
	}
	raw, err := e.provider.Complete(ctx, llm.Request{Messages: msgs, MaxTokens: 400, Temperature: 0.1})
	if err != nil {
		metrics.ModelFallbacks.WithLabelValues("evaluate").Inc()
		e.logger.Warn("answer evaluation failed, using default", zap.Error(err))
		return defaultEvaluation()
	}

	var eval Evaluation
	if !llm.DecodeOr(raw, &eval, defaultEvaluation()) {
		metrics.ModelFallbacks.WithLabelValues("evaluate").Inc()
		e.logger.Warn("answer evaluation unparseable, using default", zap.Int("reply_len", len(raw)))
		return eval
	}
	eval.Score = clampScore(eval.Score)
	eval.PostureScore = clampScore(eval.PostureScore)
	if strings.TrimSpace(eval.Feedback) == "" {
		eval.Feedback = defaultFeedback
	}
	return eval
}

func (e *Engine) narrate(ctx context.Context, rep model.Report, turns []model.Turn) (narrative, bool) {
	if e.provider == nil {
		return narrative{}, false
	}
	msgs, err := e.prompts.Build(prompts.Report, map[string]string{
		"Score":      fmt.Sprintf("%d", rep.FinalScore),
		"Transcript": transcript(turns),
	})
	if err != nil {
		e.logger.Error("report prompt", zap.Error(err))
		return narrative{}, false
	}
	raw, err := e.provider.Complete(ctx, llm.Request{Messages: msgs, MaxTokens: 500, Temperature: 0.4})
	if err != nil {
		metrics.ModelFallbacks.WithLabelValues("report").Inc()
		e.logger.Warn("report narrative failed, using computed summary", zap.Error(err))
		return narrative{}, false
	}
	var n narrative
	if err := llm.DecodeJSON(raw, &n); err != nil {
		metrics.ModelFallbacks.WithLabelValues("report").Inc()
		return narrative{}, false
	}
	return n, true
}

func transcript(turns []model.Turn) string {
	var sb strings.Builder
	for i, t := range turns {
		fmt.Fprintf(&sb, "Q%d [%s, %s]: %s\nA%d: %s\nScore: %d/10\n", i+1, t.Skill, t.Difficulty, t.Question, i+1, t.Answer, t.Score)
	}
	return sb.String()
}

func postureAverage(turns []model.Turn) int {
	sum, n := 0, 0
	for _, t := range turns {
		if t.Posture == "" {
			continue
		}
		sum += t.PostureScore
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / n
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 10 {
		return 10
	}
	return s
}

func cleanSkills(in []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}
	return out
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}
