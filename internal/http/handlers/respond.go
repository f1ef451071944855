package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nexthire/server/internal/auth"
	"github.com/nexthire/server/internal/hr"
	"github.com/nexthire/server/internal/interview"
	"github.com/nexthire/server/internal/llm"
	"github.com/nexthire/server/internal/middleware"
	"github.com/nexthire/server/internal/resume"
)

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

// owner is the email of the authenticated caller; empty if Authenticate did not run
func owner(r *http.Request) string {
	if c, ok := middleware.GetClaims(r.Context()); ok {
		return c.Email()
	}
	return ""
}

func isHR(r *http.Request) bool {
	c, ok := middleware.GetClaims(r.Context())
	return ok && c.Role == "hr"
}

// statusFor maps domain errors to an HTTP status and a client-safe message
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), auth.ErrInvalidInput.Error()+": ")
	case errors.Is(err, auth.ErrOTPNotFound):
		return http.StatusBadRequest, "OTP not found"
	case errors.Is(err, auth.ErrOTPExpired):
		return http.StatusBadRequest, "OTP expired"
	case errors.Is(err, auth.ErrOTPInvalid):
		return http.StatusBadRequest, "Invalid OTP"
	case errors.Is(err, auth.ErrBadCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, auth.ErrAlreadyTaken):
		return http.StatusConflict, "already taken"

	case errors.Is(err, interview.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, interview.ErrSessionClosed):
		return http.StatusConflict, "session already reported"
	case errors.Is(err, interview.ErrTurnInProgress):
		return http.StatusConflict, "previous answer still being evaluated"

	case errors.Is(err, resume.ErrNotPDF):
		return http.StatusBadRequest, "Only PDF allowed"
	case errors.Is(err, resume.ErrUnreadable):
		return http.StatusBadRequest, "Could not read PDF"
	case errors.Is(err, resume.ErrTextTooShort):
		return http.StatusBadRequest, "Resume text too short"
	case errors.Is(err, resume.ErrFileNotFound):
		return http.StatusNotFound, "Resume not found"
	case errors.Is(err, resume.ErrUnavailable):
		return http.StatusServiceUnavailable, "AI service not available"
	case errors.Is(err, llm.ErrNoJSON):
		return http.StatusInternalServerError, "AI returned an unreadable analysis"

	case errors.Is(err, hr.ErrCandidateNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, hr.ErrInvalidStatus):
		return http.StatusBadRequest, "invalid status"
	case errors.Is(err, hr.ErrEmptyNote):
		return http.StatusBadRequest, "note is required"
	}
	return http.StatusInternalServerError, "internal error"
}

func respondWithDomainError(w http.ResponseWriter, err error) {
	code, msg := statusFor(err)
	respondWithError(w, code, msg)
}
