package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/client-hunter/internal/metrics"
	"github.com/xaenox/client-hunter/internal/models"
	"github.com/xaenox/client-hunter/internal/storage"
)

const (
	defaultTickInterval  = time.Minute
	defaultErrorBackoff  = 30 * time.Second
	defaultStopTimeout   = 5 * time.Second
	defaultCheckInterval = 5 * time.Minute
)

// SchedulerConfig tunes the tick loop. Zero values fall back to the defaults:
// 60s tick, 30s backoff after a failed tick, 5s stop wait, 5m per-user check
// interval.
type SchedulerConfig struct {
	TickInterval  time.Duration
	ErrorBackoff  time.Duration
	StopTimeout   time.Duration
	CheckInterval time.Duration
}

// Scheduler drives periodic scans. One background loop runs a tick every
// TickInterval; ticks never overlap because the next one is scheduled
// relative to tick completion. Per-user failures are isolated inside a tick;
// a failure of the tick itself triggers ErrorBackoff before the next attempt.
type Scheduler struct {
	store   storage.Storage
	scanner *Scanner
	cfg     SchedulerConfig
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	now func() time.Time
}

func NewScheduler(store storage.Storage, scanner *Scanner, cfg SchedulerConfig, logger *zap.Logger) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = defaultErrorBackoff
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaultCheckInterval
	}
	return &Scheduler{
		store:   store,
		scanner: scanner,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Start launches the tick loop. Calling Start on a running scheduler is a
// no-op with a warning.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("Scheduler already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.run(ctx)
	s.logger.Info("Scheduler started",
		zap.Duration("tick_interval", s.cfg.TickInterval))
}

// Stop signals the loop to exit, then waits for the in-flight tick with a
// bounded timeout and proceeds regardless.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Info("Scheduler already stopped")
		return
	}
	cancel := s.cancel
	done := s.done
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
	case <-time.After(s.cfg.StopTimeout):
		s.logger.Warn("Scheduler stop timed out waiting for current tick")
	}
}

// Running reports whether the tick loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Scan runs a one-shot scan for one user outside the timer loop.
func (s *Scheduler) Scan(ctx context.Context, userID int64, settings *models.MonitoringSettings) error {
	return s.scanner.ScanUser(ctx, userID, settings)
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	for {
		wait := s.cfg.TickInterval
		if err := s.runTick(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			metrics.SchedulerTickErrors.Inc()
			s.logger.Error("Tick failed, backing off", zap.Error(err))
			wait = s.cfg.ErrorBackoff
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// runTick enumerates users with active templates and scans the eligible ones.
// A failure for one user never stops the others.
func (s *Scheduler) runTick(ctx context.Context) error {
	metrics.SchedulerTicks.Inc()

	users, err := s.store.GetUsersWithActiveTemplates(ctx)
	if err != nil {
		return fmt.Errorf("load active users: %w", err)
	}
	if len(users) == 0 {
		s.logger.Debug("No users with active templates")
		return nil
	}

	for _, userID := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.checkUser(ctx, userID)
	}
	return nil
}

func (s *Scheduler) checkUser(ctx context.Context, userID int64) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug("No monitoring settings", zap.Int64("user_id", userID))
			return
		}
		s.logger.Error("Failed to load settings",
			zap.Error(err),
			zap.Int64("user_id", userID))
		return
	}
	if !settings.IsActive {
		return
	}

	interval := time.Duration(settings.CheckIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = s.cfg.CheckInterval
	}

	now := s.now()
	if !ShouldScan(settings.LastCheck, interval, now) {
		return
	}

	s.logger.Info("Running monitoring scan", zap.Int64("user_id", userID))
	if err := s.scanner.ScanUser(ctx, userID, settings); err != nil {
		s.logger.Error("User scan failed",
			zap.Error(err),
			zap.Int64("user_id", userID))
	}

	// The timestamp advances once per user per tick even after a partial
	// failure, so a permanently failing template cannot starve future ticks.
	if err := s.store.UpdateLastCheck(ctx, userID, now); err != nil {
		s.logger.Error("Failed to update last check time",
			zap.Error(err),
			zap.Int64("user_id", userID))
	}
}

// ShouldScan reports whether enough time has passed since the last completed
// check. A user with no recorded check is always due.
func ShouldScan(lastCheck *time.Time, interval time.Duration, now time.Time) bool {
	if lastCheck == nil {
		return true
	}
	return now.Sub(*lastCheck) >= interval
}
