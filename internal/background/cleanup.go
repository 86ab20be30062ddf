package background

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SessionSweeper deactivates sessions past their expiry
type SessionSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// CounterSweeper drops expired in-process rate limit windows
type CounterSweeper interface {
	Sweep() int
}

// CleanupManager runs the maintenance sweeps on a cron schedule
type CleanupManager struct {
	sessions SessionSweeper
	counters CounterSweeper
	logger   *slog.Logger
	timeout  time.Duration
	cron     *cron.Cron
}

// NewCleanupManager creates a cleanup manager. counters may be nil when
// rate limit windows live in a shared store that expires them itself.
func NewCleanupManager(sessions SessionSweeper, counters CounterSweeper, logger *slog.Logger) *CleanupManager {
	return &CleanupManager{
		sessions: sessions,
		counters: counters,
		logger:   logger,
		timeout:  30 * time.Second,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start schedules the sweeps and runs one immediately. schedule uses cron
// syntax or descriptors such as "@every 10m".
func (cm *CleanupManager) Start(ctx context.Context, schedule string) error {
	if _, err := cm.cron.AddFunc(schedule, func() { cm.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}

	cm.RunOnce(ctx)
	cm.cron.Start()
	cm.logger.Info("cleanup manager started", slog.String("schedule", schedule))
	return nil
}

// RunOnce performs a single maintenance pass
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	sweepCtx, cancel := context.WithTimeout(ctx, cm.timeout)
	defer cancel()

	deactivated, err := cm.sessions.SweepExpired(sweepCtx)
	if err != nil {
		cm.logger.Error("failed to sweep expired sessions", slog.Any("error", err))
	} else if deactivated > 0 {
		cm.logger.Info("expired sessions deactivated", slog.Int64("sessions", deactivated))
	}

	if cm.counters != nil {
		if removed := cm.counters.Sweep(); removed > 0 {
			cm.logger.Debug("expired rate limit windows removed", slog.Int("windows", removed))
		}
	}
}

// Stop stops scheduling and waits for a running sweep to finish
func (cm *CleanupManager) Stop() {
	<-cm.cron.Stop().Done()
	cm.logger.Info("cleanup manager stopped")
}
