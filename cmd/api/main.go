package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nexthire/server/internal/auth"
	"github.com/nexthire/server/internal/config"
	"github.com/nexthire/server/internal/db"
	"github.com/nexthire/server/internal/hr"
	httphandler "github.com/nexthire/server/internal/http"
	"github.com/nexthire/server/internal/http/handlers"
	"github.com/nexthire/server/internal/interview"
	"github.com/nexthire/server/internal/jobs"
	"github.com/nexthire/server/internal/llm"
	"github.com/nexthire/server/internal/logging"
	"github.com/nexthire/server/internal/mail"
	"github.com/nexthire/server/internal/prompts"
	"github.com/nexthire/server/internal/repo"
	"github.com/nexthire/server/internal/resume"
	"github.com/nexthire/server/internal/scoring"
	"github.com/nexthire/server/internal/tts"
)

const lockTTL = 2 * time.Minute

func main() {
	// Load .env from CWD or server/ so it works from repo root or server/ (env vars override)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("server/.env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.DevMode)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	accountRepo := repo.NewAccountRepo(database)
	otpRepo := repo.NewOtpRepo(database)
	sessionRepo := repo.NewSessionRepo(database)
	recordRepo := repo.NewRecordRepo(database)
	resumeRepo := repo.NewResumeRepo(database)
	hrRepo := repo.NewHRRepo(database)

	otpProvider := auth.NewOtpService(otpRepo, cfg.OTPSalt, cfg.OTPTTL, cfg.DevMode)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	authService := auth.NewAuthService(otpProvider, jwtService, accountRepo, mail.New(cfg.SMTP, logger), logger)

	pm, err := prompts.NewManager()
	if err != nil {
		logger.Fatal("failed to load prompt templates", zap.Error(err))
	}
	provider, err := llm.New(cfg.LLM)
	if err != nil {
		logger.Fatal("failed to configure model provider", zap.Error(err))
	}
	if provider == nil {
		logger.Warn("no model API key configured, interviews use fallback questions and resume analysis is disabled")
	} else {
		logger.Info("model provider ready", zap.String("provider", provider.Name()))
	}
	speech := tts.New(cfg.TTS, cfg.LLM.Timeout)

	var store interview.SessionStore
	var sweeper jobs.IdleSweeper
	if cfg.Redis != "" {
		opts, err := redis.ParseURL(cfg.Redis)
		if err != nil {
			logger.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to reach redis", zap.Error(err))
		}
		store = interview.NewRedisStore(rdb, cfg.Interview.IdleTimeout, lockTTL)
		logger.Info("live sessions stored in redis")
	} else {
		mem := interview.NewMemoryStore()
		store, sweeper = mem, mem
	}

	ladder := interview.Ladder{RaiseAt: cfg.Interview.RaiseAt, LowerAt: cfg.Interview.LowerAt}
	engine := interview.NewEngine(sessionRepo, recordRepo, store, provider, pm, ladder, logger)

	resumeStore, err := resume.NewStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal("failed to prepare upload directory", zap.Error(err))
	}
	analyzer := resume.NewAnalyzer(resume.PDFExtractor{}, provider, pm, resumeRepo, logger)

	aggregator := scoring.NewAggregator(resumeRepo, sessionRepo, recordRepo, hrRepo, scoring.WeightsFrom(cfg.Weights))
	hrService := hr.NewService(accountRepo, resumeRepo, sessionRepo, recordRepo, hrRepo, aggregator, logger)

	janitor := jobs.NewJanitor(otpRepo, sweeper, cfg.Interview.IdleTimeout, cfg.Interview.SweepSchedule, logger)
	if err := janitor.Start(); err != nil {
		logger.Fatal("failed to start janitor", zap.Error(err))
	}
	defer janitor.Stop()

	limits := httphandler.DefaultLimits()
	defer limits.Stop()

	router := httphandler.NewRouter(httphandler.Handlers{
		Auth:      handlers.NewAuthHandler(authService, cfg.DevMode, logger),
		Resume:    handlers.NewResumeHandler(resumeStore, analyzer, resumeRepo, logger),
		Mock:      handlers.NewMockHandler(engine, logger),
		Interview: handlers.NewInterviewWSHandler(engine, speech, nil, logger),
		HR:        handlers.NewHRHandler(hrService, logger),
		Health:    handlers.NewHealthHandler(database),
	}, limits, jwtService, cfg.CORSOrigins, logger)

	// No WriteTimeout: model round trips and websocket sessions outlive it.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}
