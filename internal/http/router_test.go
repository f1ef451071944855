package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexthire/server/internal/auth"
	"github.com/nexthire/server/internal/hr"
	"github.com/nexthire/server/internal/http/handlers"
	"github.com/nexthire/server/internal/interview"
	"github.com/nexthire/server/internal/llm"
	"github.com/nexthire/server/internal/model"
	"github.com/nexthire/server/internal/prompts"
	"github.com/nexthire/server/internal/repo/repotest"
	"github.com/nexthire/server/internal/resume"
	"github.com/nexthire/server/internal/scoring"
)

const (
	evalReply   = `{"score": 9, "feedback": "Great depth", "improved_answer": "n/a", "posture_score": 7}`
	reportReply = "```json\n{\"summary\": \"Confident Go engineer.\", \"strengths\": [\"go\"], \"improvements\": [\"testing\"], \"spoken_summary\": \"Well done today.\"}\n```"
	resumeReply = `Here you go: {"ats_score": 81, "skill_breakdown": {"go": 90}, "low_score_reasons": []}`
)

// fakeOTP issues 123456 for every request and remembers the latest per (email, purpose)
type fakeOTP struct {
	mu    sync.Mutex
	codes map[string]string
}

func (f *fakeOTP) RequestOTP(_ context.Context, email, purpose string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[email+"|"+purpose] = "123456"
	return "123456", nil
}

func (f *fakeOTP) VerifyOTP(_ context.Context, email, purpose, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	want, ok := f.codes[email+"|"+purpose]
	if !ok {
		return auth.ErrOTPNotFound
	}
	if want != code {
		return auth.ErrOTPInvalid
	}
	delete(f.codes, email+"|"+purpose)
	return nil
}

type discardSender struct{}

func (discardSender) SendOTP(context.Context, string, string, string) error { return nil }

type scriptedModel struct{ mu sync.Mutex }

func (*scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Complete(_ context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last := req.Messages[len(req.Messages)-1].Content
	switch {
	case strings.Contains(last, "ats_score"):
		return resumeReply, nil
	case strings.Contains(last, "improved_answer"):
		return evalReply, nil
	case strings.Contains(last, "TRANSCRIPT"):
		return reportReply, nil
	default:
		return `"What is a goroutine?"`, nil
	}
}

type textExtractor struct{}

func (textExtractor) Extract(data []byte) (string, error) {
	return strings.Repeat(string(data)+" ", 200), nil
}

type beepSpeech struct{}

func (beepSpeech) Speak(_ context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, nil
	}
	return []byte("RIFFaudio"), nil
}

type testServer struct {
	router http.Handler
	jwt    *auth.JWTService
	store  *repotest.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	st := repotest.New()

	jwtService := auth.NewJWTService("test-secret", time.Hour)
	authService := auth.NewAuthService(&fakeOTP{codes: map[string]string{}}, jwtService, st.Accounts(), discardSender{}, logger)

	pm, err := prompts.NewManager()
	require.NoError(t, err)
	provider := &scriptedModel{}

	engine := interview.NewEngine(st.Sessions(), st.Records(), interview.NewMemoryStore(), provider, pm,
		interview.Ladder{RaiseAt: 8, LowerAt: 4}, logger)

	resumeStore, err := resume.NewStore(t.TempDir())
	require.NoError(t, err)
	analyzer := resume.NewAnalyzer(textExtractor{}, provider, pm, st.Resumes(), logger)

	agg := scoring.NewAggregator(st.Resumes(), st.Sessions(), st.Records(), st.HR(), scoring.DefaultWeights)
	hrService := hr.NewService(st.Accounts(), st.Resumes(), st.Sessions(), st.Records(), st.HR(), agg, logger)

	limits := DefaultLimits()
	t.Cleanup(limits.Stop)

	router := NewRouter(Handlers{
		Auth:      handlers.NewAuthHandler(authService, true, logger),
		Resume:    handlers.NewResumeHandler(resumeStore, analyzer, st.Resumes(), logger),
		Mock:      handlers.NewMockHandler(engine, logger),
		Interview: handlers.NewInterviewWSHandler(engine, beepSpeech{}, nil, logger),
		HR:        handlers.NewHRHandler(hrService, logger),
		Health:    handlers.NewHealthHandler(nil),
	}, limits, jwtService, []string{"*"}, logger)

	return &testServer{router: router, jwt: jwtService, store: st}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = "10.1.1.1:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) signup(t *testing.T, email, role string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/send-otp", "", map[string]string{"email": email, "purpose": "signup"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/verify-signup", "", map[string]string{
		"email": email, "otp": "123456", "password": "secret123", "role": role,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct{ Token string }
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/send-otp", "", map[string]string{"email": "Jane@Example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "123456", decode[map[string]string](t, rec)["dev_otp"])

	rec = s.do(t, http.MethodPost, "/verify-signup", "", map[string]string{"email": "jane@example.com", "otp": "000000", "password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid OTP", decode[map[string]string](t, rec)["error"])

	rec = s.do(t, http.MethodPost, "/verify-signup", "", map[string]string{"email": "jane@example.com", "otp": "123456", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	signup := decode[map[string]string](t, rec)
	assert.Equal(t, "jane", signup["username"])
	assert.Equal(t, model.RoleCandidate, signup["role"])

	claims, err := s.jwt.VerifyToken(signup["token"])
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", claims.Email())

	rec = s.do(t, http.MethodPost, "/login", "", map[string]string{"login_identifier": "jane", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jane@example.com", decode[map[string]string](t, rec)["email"])

	rec = s.do(t, http.MethodPost, "/login", "", map[string]string{"login_identifier": "jane", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	s.do(t, http.MethodPost, "/send-otp", "", map[string]string{"email": "jane@example.com"})
	rec = s.do(t, http.MethodPost, "/verify-signup", "", map[string]string{"email": "jane@example.com", "otp": "123456", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/verify-signup", "", map[string]string{"email": "x@example.com", "otp": "1", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendOTPRateLimited(t *testing.T) {
	s := newTestServer(t)
	var last int
	for i := 0; i < 11; i++ {
		last = s.do(t, http.MethodPost, "/send-otp", "", map[string]string{"email": fmt.Sprintf("u%d@example.com", i)}).Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestAccessControl(t *testing.T) {
	s := newTestServer(t)
	cand := s.signup(t, "cand@example.com", "candidate")
	boss := s.signup(t, "boss@example.com", "hr")

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/candidates", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/hr/candidates", cand, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/hr/candidates", boss, nil).Code)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/candidate/cand@example.com", cand, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/candidate/other@example.com", cand, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/resume/history/other@example.com", cand, nil).Code)
}

func TestMockInterviewFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "dev@example.com", "candidate")

	rec := s.do(t, http.MethodPost, "/mock/start", token, map[string]any{"skills": []string{"Go", "SQL"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	start := decode[map[string]string](t, rec)
	assert.Equal(t, "medium", start["difficulty"])
	assert.Equal(t, "What is a goroutine?", start["question"])
	assert.Equal(t, "Go", start["skill"])
	sid := start["session_id"]

	rec = s.do(t, http.MethodPost, "/mock/answer", token, map[string]string{"session_id": sid, "answer": "A lightweight thread."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ans := decode[map[string]any](t, rec)
	assert.EqualValues(t, 9, ans["score"])
	assert.Equal(t, "hard", ans["next_difficulty"])
	assert.Equal(t, "SQL", ans["next_skill"])

	other := s.signup(t, "other@example.com", "candidate")
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/mock/report/"+sid, other, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/mock/report/"+sid+"/pdf", token, nil).Code)

	rec = s.do(t, http.MethodGet, "/mock/report/"+sid, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rep := decode[model.Report](t, rec)
	assert.Equal(t, 90, rep.FinalScore)
	assert.Equal(t, "Confident Go engineer.", rep.Summary)

	again := decode[model.Report](t, s.do(t, http.MethodGet, "/mock/report/"+sid, token, nil))
	assert.Equal(t, rep.FinalScore, again.FinalScore)

	rec = s.do(t, http.MethodPost, "/mock/answer", token, map[string]string{"session_id": sid, "answer": "late"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/mock/report/"+sid+"/pdf", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/mock/report/not-a-uuid", token, nil).Code)
}

func TestHRReadingOpenReportLeavesSessionRunning(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "dev@example.com", "candidate")
	boss := s.signup(t, "boss@example.com", "hr")

	rec := s.do(t, http.MethodPost, "/mock/start", token, map[string]any{"skills": []string{"Go"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sid := decode[map[string]string](t, rec)["session_id"]

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/mock/report/"+sid, boss, nil).Code)

	rec = s.do(t, http.MethodPost, "/mock/answer", token, map[string]string{"session_id": sid, "answer": "A lightweight thread."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/mock/report/"+sid, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 90, decode[model.Report](t, rec).FinalScore)

	rec = s.do(t, http.MethodGet, "/mock/report/"+sid, boss, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 90, decode[model.Report](t, rec).FinalScore)
}

func upload(t *testing.T, s *testServer, path, token, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, _ = fw.Write([]byte(content))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestResumeFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "ann@example.com", "candidate")

	rec := upload(t, s, "/upload-resume", token, "cv.pdf", "%PDF-fake")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	name := decode[map[string]string](t, rec)["filename"]
	assert.Equal(t, "ann_example.com_cv.pdf", name)

	assert.Equal(t, http.StatusBadRequest, upload(t, s, "/upload-resume", token, "cv.docx", "PK").Code)

	rec = s.do(t, http.MethodGet, "/resume/"+name, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-fake", rec.Body.String())
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/resume/ann_example.com_missing.pdf", token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/resume/ann_example.com_cv.docx", token, nil).Code)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/resume/"+name, "", nil).Code)
	other := s.signup(t, "eve@example.com", "candidate")
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/resume/"+name, other, nil).Code)
	boss := s.signup(t, "boss@example.com", "hr")
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/resume/"+name, boss, nil).Code)

	rec = upload(t, s, "/analyze-resume", token, "cv.docx", "Go engineer")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(t, s, "/analyze-resume", token, "cv.pdf", "Go engineer")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode[struct {
		Success  bool           `json:"success"`
		Analysis map[string]any `json:"analysis"`
	}](t, rec)
	assert.True(t, out.Success)
	assert.EqualValues(t, 81, out.Analysis["score"])

	rec = s.do(t, http.MethodGet, "/resume/history/ann@example.com", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hist := decode[struct {
		History []model.ResumeAnalysis `json:"history"`
	}](t, rec)
	require.Len(t, hist.History, 1)
	assert.Equal(t, 81, hist.History[0].ATSScore)
}

func TestHRDashboard(t *testing.T) {
	s := newTestServer(t)
	boss := s.signup(t, "boss@example.com", "hr")
	s.signup(t, "ann@example.com", "candidate")
	s.signup(t, "bob@example.com", "candidate")
	require.NoError(t, s.store.Resumes().AddAnalysis(context.Background(), &model.ResumeAnalysis{Email: "ann@example.com", ATSScore: 90}))

	rec := s.do(t, http.MethodGet, "/hr/candidates?min_score=10", boss, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Candidates []model.Candidate `json:"candidates"`
	}](t, rec)
	require.Len(t, list.Candidates, 1)
	assert.Equal(t, "ann@example.com", list.Candidates[0].Email)
	assert.Equal(t, 18, list.Candidates[0].OverallScore)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/hr/candidates?min_score=lots", boss, nil).Code)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/hr/candidate/ann@example.com/status/Shortlisted", boss, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/hr/candidate/ann@example.com/status/promoted", boss, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/hr/candidate/ghost@example.com/status/hired", boss, nil).Code)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/hr/candidate/ann@example.com/add-note", boss, map[string]string{"note": " "}).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/hr/candidate/ann@example.com/add-note", boss, map[string]string{"note": "call back"}).Code)

	rec = s.do(t, http.MethodGet, "/hr/candidate/ann@example.com", boss, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[hr.Profile](t, rec)
	assert.Equal(t, "shortlisted", p.Status)
	assert.Equal(t, []string{"Current Status: Shortlisted"}, p.Timeline)
	require.Len(t, p.Notes, 1)

	rec = s.do(t, http.MethodGet, "/hr/candidates/export.xlsx?status=shortlisted", boss, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

// readFrame skips binary audio frames and returns the next JSON frame, counting audio seen
func readFrame(t *testing.T, conn *websocket.Conn, audio *int) map[string]string {
	t.Helper()
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if kind == websocket.BinaryMessage {
			*audio++
			continue
		}
		var f map[string]string
		require.NoError(t, json.Unmarshal(data, &f))
		return f
	}
}

func TestInterviewSocket(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "live@example.com", "candidate")

	srv := httptest.NewServer(s.router)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/interview?token=" + token

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/interview", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	audio := 0
	require.NoError(t, conn.WriteJSON(map[string]any{"action": "answer", "text": "too early"}))
	assert.Equal(t, "error", readFrame(t, conn, &audio)["type"])

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "start", "role": "Backend"}))
	f := readFrame(t, conn, &audio)
	assert.Equal(t, "text_response", f["type"])
	assert.Equal(t, "What is a goroutine?", f["content"])

	require.NoError(t, conn.WriteJSON(map[string]any{
		"action": "answer", "text": "A green thread.", "visual_context": map[string]string{"posture": "Good"},
	}))
	assert.Equal(t, "Great depth", readFrame(t, conn, &audio)["content"])
	assert.Equal(t, "What is a goroutine?", readFrame(t, conn, &audio)["content"])

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "end"}))
	assert.Equal(t, "Well done today.", readFrame(t, conn, &audio)["content"])
	f = readFrame(t, conn, &audio)
	require.Equal(t, "report", f["type"])

	var rep model.Report
	require.NoError(t, json.Unmarshal([]byte(f["content"]), &rep))
	assert.Equal(t, 90, rep.FinalScore)
	assert.Equal(t, 3, audio)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	recs, err := s.store.Records().List(context.Background(), "live@example.com")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 90, recs[0].Score)
	assert.Equal(t, 7, recs[0].PostureScore)
}
