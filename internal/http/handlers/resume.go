package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nexthire/server/internal/logging"
	"github.com/nexthire/server/internal/repo"
	"github.com/nexthire/server/internal/resume"
)

const maxResumeBytes = 10 << 20

// ResumeHandler serves resume upload, download and analysis
type ResumeHandler struct {
	store    *resume.Store
	analyzer *resume.Analyzer
	resumes  repo.ResumeRepo
	logger   *zap.Logger
}

func NewResumeHandler(store *resume.Store, analyzer *resume.Analyzer, resumes repo.ResumeRepo, logger *zap.Logger) *ResumeHandler {
	return &ResumeHandler{store: store, analyzer: analyzer, resumes: resumes, logger: logger}
}

// HandleUpload handles POST /upload-resume (multipart field "file")
func (h *ResumeHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	email := owner(r)
	file, filename, ok := readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		respondWithDomainError(w, resume.ErrNotPDF)
		return
	}
	name, err := h.store.Save(email, filename, file)
	if err != nil {
		h.logger.Error("save resume", logging.Email(email), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "could not store resume")
		return
	}
	if err := h.resumes.SetUpload(r.Context(), email, name); err != nil {
		h.logger.Error("record resume upload", logging.Email(email), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "could not store resume")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Resume uploaded", "filename": name})
}

// HandleDownload handles GET /resume/{filename}. Candidates may only fetch their own uploads.
func (h *ResumeHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if !isHR(r) && !resume.OwnedBy(name, owner(r)) {
		respondWithError(w, http.StatusForbidden, "forbidden")
		return
	}
	f, err := h.store.Open(name)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "could not read resume")
		return
	}
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		w.Header().Set("Content-Type", "application/pdf")
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// HandleAnalyze handles POST /analyze-resume. The result is stored in the caller's history.
func (h *ResumeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	file, filename, ok := readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), owner(r), filename, data)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "analysis": result.Fields})
}

// HandleHistory handles GET /resume/history/{email}. Candidates may only read their own.
func (h *ResumeHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(chi.URLParam(r, "email"))
	if email != owner(r) && !isHR(r) {
		respondWithError(w, http.StatusForbidden, "forbidden")
		return
	}
	list, err := h.analyzer.History(r.Context(), email)
	if err != nil {
		h.logger.Error("resume history", logging.Email(email), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"history": list})
}

type multipartFile interface {
	io.Reader
	io.Closer
}

func readUpload(w http.ResponseWriter, r *http.Request) (multipartFile, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxResumeBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "file is required")
		return nil, "", false
	}
	return file, header.Filename, true
}
