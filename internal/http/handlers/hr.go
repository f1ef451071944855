package handlers

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nexthire/server/internal/hr"
	"github.com/nexthire/server/internal/scoring"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HRHandler serves the candidate listing and the HR dashboard
type HRHandler struct {
	service *hr.Service
	logger  *zap.Logger
}

func NewHRHandler(service *hr.Service, logger *zap.Logger) *HRHandler {
	return &HRHandler{service: service, logger: logger}
}

type noteRequest struct {
	Note string `json:"note"`
}

// HandleCandidates handles GET /candidates and GET /hr/candidates.
// Query: search, role, min_score, status.
func (h *HRHandler) HandleCandidates(w http.ResponseWriter, r *http.Request) {
	f, ok := filterFrom(w, r.URL.Query())
	if !ok {
		return
	}
	list, err := h.service.List(r.Context(), f)
	if err != nil {
		h.logger.Error("list candidates", zap.Error(err))
		respondWithDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"candidates": list})
}

// HandleProfile handles GET /candidate/{email} and GET /hr/candidate/{email}.
// Candidates may only open their own profile.
func (h *HRHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	email := emailParam(r)
	if !isHR(r) && !strings.EqualFold(email, owner(r)) {
		respondWithError(w, http.StatusForbidden, "forbidden")
		return
	}
	p, err := h.service.Profile(r.Context(), email)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// HandleSetStatus handles POST /hr/candidate/{email}/status/{state}
func (h *HRHandler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	state := strings.ToLower(chi.URLParam(r, "state"))
	if err := h.service.SetStatus(r.Context(), emailParam(r), state); err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Status updated", "status": state})
}

// HandleAddNote handles POST /hr/candidate/{email}/add-note
func (h *HRHandler) HandleAddNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n, err := h.service.AddNote(r.Context(), emailParam(r), req.Note)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "Note added", "note": n})
}

// HandleExport handles GET /hr/candidates/export.xlsx with the same filters as the listing
func (h *HRHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	f, ok := filterFrom(w, r.URL.Query())
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.service.ExportXLSX(r.Context(), f, &buf); err != nil {
		h.logger.Error("export candidates", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "could not build export")
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="candidates.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func filterFrom(w http.ResponseWriter, q url.Values) (scoring.Filter, bool) {
	f := scoring.Filter{
		Search: q.Get("search"),
		Role:   q.Get("role"),
		Status: q.Get("status"),
	}
	if v := q.Get("min_score"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "min_score must be an integer")
			return scoring.Filter{}, false
		}
		f.MinScore = n
	}
	return f, true
}

func emailParam(r *http.Request) string {
	email := chi.URLParam(r, "email")
	if unescaped, err := url.PathUnescape(email); err == nil {
		email = unescaped
	}
	return strings.ToLower(strings.TrimSpace(email))
}
