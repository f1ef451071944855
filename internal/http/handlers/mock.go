package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexthire/server/internal/interview"
	"github.com/nexthire/server/internal/model"
)

// MockHandler exposes the request/response interview flow
type MockHandler struct {
	engine *interview.Engine
	logger *zap.Logger
}

func NewMockHandler(engine *interview.Engine, logger *zap.Logger) *MockHandler {
	return &MockHandler{engine: engine, logger: logger}
}

type startMockRequest struct {
	Skills     []string `json:"skills"`
	Role       string   `json:"role"`
	Experience string   `json:"experience"`
}

type startMockResponse struct {
	SessionID  uuid.UUID        `json:"session_id"`
	Difficulty model.Difficulty `json:"difficulty"`
	Question   string           `json:"question"`
	Skill      string           `json:"skill"`
}

type answerMockRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Skill     string `json:"skill"`
	Posture   string `json:"posture"`
}

// HandleStart handles POST /mock/start
func (h *MockHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req startMockRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.engine.Start(r.Context(), interview.StartInput{
		Owner:      owner(r),
		Kind:       model.KindMock,
		Skills:     req.Skills,
		Role:       req.Role,
		Experience: req.Experience,
	})
	if err != nil {
		h.logger.Error("start mock interview", zap.Error(err))
		respondWithDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, startMockResponse{
		SessionID:  res.Session.ID,
		Difficulty: res.Session.Difficulty,
		Question:   res.Question,
		Skill:      res.Skill,
	})
}

// HandleAnswer handles POST /mock/answer
func (h *MockHandler) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerMockRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "session_id must be a UUID")
		return
	}
	res, err := h.engine.SubmitAnswer(r.Context(), interview.AnswerInput{
		SessionID: id,
		Owner:     owner(r),
		Question:  req.Question,
		Answer:    req.Answer,
		Skill:     req.Skill,
		Posture:   req.Posture,
	})
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// HandleReport handles GET /mock/report/{sessionId}. The owner's request ends the session
// if it is still open; HR only sees reports that already exist.
func (h *MockHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	rep, err := h.engine.Report(r.Context(), id, owner(r))
	if errors.Is(err, interview.ErrSessionNotFound) && isHR(r) {
		rep, err = h.engine.StoredReport(r.Context(), id, "")
	}
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

// HandleReportPDF handles GET /mock/report/{sessionId}/pdf for an already generated report
func (h *MockHandler) HandleReportPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	rep, err := h.engine.StoredReport(r.Context(), id, h.reportOwner(r))
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	pdf, err := interview.RenderPDF(rep)
	if err != nil {
		h.logger.Error("render report pdf", zap.String("session_id", id.String()), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "could not render report")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="report_`+id.String()+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// HR reviewers may read any candidate's report
func (h *MockHandler) reportOwner(r *http.Request) string {
	if isHR(r) {
		return ""
	}
	return owner(r)
}

func sessionParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "session id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
