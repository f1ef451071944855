package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/nexthire/server/internal/repo"
)

// IdleSweeper drops live interview state that has not been touched for idle
type IdleSweeper interface {
	Sweep(idle time.Duration) int
}

// Janitor periodically removes expired OTPs and abandoned in-memory sessions
type Janitor struct {
	otps     repo.OtpRepo
	sessions IdleSweeper
	idle     time.Duration
	schedule string
	logger   *zap.Logger
	cron     *cron.Cron
	now      func() time.Time
}

// NewJanitor creates the job. sessions may be nil when live state expires on its own (Redis TTL).
func NewJanitor(otps repo.OtpRepo, sessions IdleSweeper, idle time.Duration, schedule string, logger *zap.Logger) *Janitor {
	return &Janitor{
		otps:     otps,
		sessions: sessions,
		idle:     idle,
		schedule: schedule,
		logger:   logger,
		cron:     cron.New(),
		now:      time.Now,
	}
}

// Start schedules RunOnce on the configured cron spec
func (j *Janitor) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := j.RunOnce(ctx); err != nil {
			j.logger.Warn("janitor run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule janitor %q: %w", j.schedule, err)
	}
	j.cron.Start()
	j.logger.Info("janitor started", zap.String("schedule", j.schedule))
	return nil
}

// Stop waits for a running job to finish
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// RunOnce performs a single cleanup pass
func (j *Janitor) RunOnce(ctx context.Context) error {
	swept := 0
	if j.sessions != nil {
		swept = j.sessions.Sweep(j.idle)
	}
	removed, err := j.otps.DeleteExpired(ctx, j.now())
	if err != nil {
		return fmt.Errorf("delete expired otps: %w", err)
	}
	if swept > 0 || removed > 0 {
		j.logger.Info("janitor pass", zap.Int("idle_sessions", swept), zap.Int64("expired_otps", removed))
	}
	return nil
}
