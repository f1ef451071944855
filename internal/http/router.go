package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nexthire/server/internal/auth"
	"github.com/nexthire/server/internal/http/handlers"
	"github.com/nexthire/server/internal/metrics"
	"github.com/nexthire/server/internal/middleware"
	"github.com/nexthire/server/internal/model"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Auth      *handlers.AuthHandler
	Resume    *handlers.ResumeHandler
	Mock      *handlers.MockHandler
	Interview *handlers.InterviewWSHandler
	HR        *handlers.HRHandler
	Health    *handlers.HealthHandler
}

// Limits are the sliding-window limiters for unauthenticated endpoints
type Limits struct {
	OTP    *middleware.RateLimiter
	Signup *middleware.RateLimiter
	Login  *middleware.RateLimiter
}

// DefaultLimits allows 10 OTP requests, 20 signups and 20 logins per IP every 10 minutes
func DefaultLimits() Limits {
	return Limits{
		OTP:    middleware.NewRateLimiter(10*time.Minute, 10),
		Signup: middleware.NewRateLimiter(10*time.Minute, 20),
		Login:  middleware.NewRateLimiter(10*time.Minute, 20),
	}
}

// Stop releases the limiters' cleanup goroutines
func (l Limits) Stop() {
	for _, rl := range []*middleware.RateLimiter{l.OTP, l.Signup, l.Login} {
		if rl != nil {
			rl.Stop()
		}
	}
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(h Handlers, limits Limits, jwtService *auth.JWTService, corsOrigins []string, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", h.Health.ServeHTTP)
	r.Handle("/metrics", metrics.Handler())

	limited := func(rl *middleware.RateLimiter, fn http.HandlerFunc) http.Handler {
		return middleware.RateLimitMiddleware(rl, middleware.GetIPKey)(fn)
	}
	r.Method(http.MethodPost, "/send-otp", limited(limits.OTP, h.Auth.HandleSendOTP))
	r.Method(http.MethodPost, "/verify-signup", limited(limits.Signup, h.Auth.HandleVerifySignup))
	r.Method(http.MethodPost, "/login", limited(limits.Login, h.Auth.HandleLogin))
	r.Method(http.MethodPost, "/reset-password", limited(limits.Signup, h.Auth.HandleResetPassword))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtService, logger))

		r.Post("/upload-resume", h.Resume.HandleUpload)
		r.Post("/analyze-resume", h.Resume.HandleAnalyze)
		r.Get("/resume/history/{email}", h.Resume.HandleHistory)
		r.Get("/resume/{filename}", h.Resume.HandleDownload)

		r.Route("/mock", func(r chi.Router) {
			r.Post("/start", h.Mock.HandleStart)
			r.Post("/answer", h.Mock.HandleAnswer)
			r.Get("/report/{sessionId}", h.Mock.HandleReport)
			r.Get("/report/{sessionId}/pdf", h.Mock.HandleReportPDF)
		})

		r.Get("/ws/interview", h.Interview.ServeHTTP)

		r.Get("/candidates", h.HR.HandleCandidates)
		r.Get("/candidate/{email}", h.HR.HandleProfile)

		r.Route("/hr", func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleHR))
			r.Get("/candidates", h.HR.HandleCandidates)
			r.Get("/candidates/export.xlsx", h.HR.HandleExport)
			r.Get("/candidate/{email}", h.HR.HandleProfile)
			r.Post("/candidate/{email}/status/{state}", h.HR.HandleSetStatus)
			r.Post("/candidate/{email}/add-note", h.HR.HandleAddNote)
		})
	})

	return r
}
