package consultation

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/interfaces"
)

// Sweeper purges idle sessions, and optionally expired audit records, on a cron schedule
type Sweeper struct {
	registry    *Registry
	audit       interfaces.AuditStorage
	auditMaxAge time.Duration
	cron        *cron.Cron
	logger      arbor.ILogger
}

func NewSweeper(registry *Registry, logger arbor.ILogger) *Sweeper {
	return &Sweeper{
		registry: registry,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
	}
}

// SetAuditRetention makes each sweep delete audit records older than maxAge.
// A zero maxAge keeps records forever.
func (s *Sweeper) SetAuditRetention(storage interfaces.AuditStorage, maxAge time.Duration) {
	s.audit = storage
	s.auditMaxAge = maxAge
}

// Start schedules the purge. schedule uses the six-field form with seconds.
func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		// Default: every 5 minutes
		schedule = "0 */5 * * * *"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.RunNow()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Dur("idle_timeout", s.registry.idleTimeout).
		Msg("Session sweeper started")

	return nil
}

// Stop stops the schedule and waits for a running purge to finish
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Session sweeper stopped")
}

// RunNow purges immediately and returns the number of sessions removed
func (s *Sweeper) RunNow() int {
	purged := s.registry.PurgeIdle(time.Now())
	if purged > 0 {
		s.logger.Info().
			Int("purged", purged).
			Int("remaining", s.registry.Len()).
			Msg("Idle sessions purged")
	}

	if s.audit != nil && s.auditMaxAge > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		cutoff := time.Now().Add(-s.auditMaxAge).Unix()
		if _, err := s.audit.DeleteOlderThan(ctx, cutoff); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to purge expired audit records")
		}
	}
	return purged
}
