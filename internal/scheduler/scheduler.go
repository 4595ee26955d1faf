package scheduler

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// DefaultPurgeInterval is used when the configured interval is not positive.
const DefaultPurgeInterval = 5 * time.Minute

// Purger is the session store surface the job needs.
type Purger interface {
	PurgeExpired() int
	Len() int
}

// SessionGauge receives the session count after each purge.
type SessionGauge interface {
	SetActiveSessions(n int)
}

// Scheduler periodically drops expired sessions. It never polls weather.
type Scheduler struct {
	scheduler *gocron.Scheduler
	purger    Purger
	gauge     SessionGauge
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler. gauge may be nil.
func New(purger Purger, interval time.Duration, gauge SessionGauge, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		purger:    purger,
		gauge:     gauge,
		interval:  interval,
		logger:    logger.With("module", "scheduler"),
	}
}

// Interval returns the effective purge interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start schedules the purge job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.purger == nil {
		s.logger.Info("no session store configured; nothing to schedule")
		return nil
	}

	if _, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.Purge); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("session purge scheduled", "interval", s.interval)
	return nil
}

// Purge runs one purge pass.
func (s *Scheduler) Purge() {
	removed := s.purger.PurgeExpired()
	remaining := s.purger.Len()
	if s.gauge != nil {
		s.gauge.SetActiveSessions(remaining)
	}
	if removed > 0 {
		s.logger.Debug("expired sessions purged", "removed", removed, "remaining", remaining)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
