package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/nexthire/server/internal/auth"
	"github.com/nexthire/server/internal/logging"
	"github.com/nexthire/server/internal/model"
)

// AuthHandler handles signup, login and password reset
type AuthHandler struct {
	authService *auth.AuthService
	devMode     bool
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler. In dev mode the OTP is echoed in the response.
func NewAuthHandler(authService *auth.AuthService, devMode bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, devMode: devMode, logger: logger}
}

type sendOTPRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

type sendOTPResponse struct {
	Message string `json:"message"`
	DevOTP  string `json:"dev_otp,omitempty"`
}

type verifySignupRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	LoginIdentifier string `json:"login_identifier"`
	Email           string `json:"email"`
	Password        string `json:"password"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

type tokenResponse struct {
	Message  string `json:"message"`
	Token    string `json:"token"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// HandleSendOTP handles POST /send-otp
func (h *AuthHandler) HandleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		respondWithError(w, http.StatusBadRequest, "email is required")
		return
	}

	code, err := h.authService.SendOTP(r.Context(), req.Email, req.Purpose)
	if err != nil {
		h.logger.Warn("send otp failed", logging.Email(req.Email), zap.Error(err))
		respondWithDomainError(w, err)
		return
	}

	resp := sendOTPResponse{Message: "OTP sent successfully"}
	if h.devMode {
		resp.DevOTP = code
	}
	respondJSON(w, http.StatusOK, resp)
}

// HandleVerifySignup handles POST /verify-signup
func (h *AuthHandler) HandleVerifySignup(w http.ResponseWriter, r *http.Request) {
	var req verifySignupRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acc, token, err := h.authService.VerifySignup(r.Context(), auth.SignupInput{
		Email:    req.Email,
		OTP:      req.OTP,
		Password: req.Password,
		Role:     req.Role,
		Phone:    req.Phone,
	})
	if err != nil {
		h.logger.Info("signup rejected", logging.Email(req.Email), zap.Error(err))
		respondWithDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tokenFor("Signup successful", acc, token))
}

// HandleLogin handles POST /login. login_identifier may be an email or a username.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	identifier := req.LoginIdentifier
	if identifier == "" {
		identifier = req.Email
	}

	acc, token, err := h.authService.Login(r.Context(), identifier, req.Password)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tokenFor("Login successful", acc, token))
}

// HandleResetPassword handles POST /reset-password
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.authService.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

func tokenFor(msg string, acc *model.Account, token string) tokenResponse {
	return tokenResponse{
		Message:  msg,
		Token:    token,
		Email:    acc.Email,
		Username: acc.Username,
		Role:     acc.Role,
	}
}
