package session

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically removes sessions that have been idle longer than
// maxAge. It runs on a cron schedule until stopped.
type Sweeper struct {
	manager  *Manager
	schedule string
	maxAge   time.Duration
	cron     *cron.Cron
}

// NewSweeper creates a sweeper. An empty schedule defaults to hourly; a zero
// maxAge defaults to 24 hours.
func NewSweeper(manager *Manager, schedule string, maxAge time.Duration) *Sweeper {
	if schedule == "" {
		schedule = "@hourly"
	}
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &Sweeper{
		manager:  manager,
		schedule: schedule,
		maxAge:   maxAge,
	}
}

// Start schedules the sweep job and begins running it.
func (s *Sweeper) Start() error {
	s.cron = cron.New()

	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		removed, err := s.manager.CleanupExpired(ctx, s.maxAge)
		if err != nil {
			log.Printf("[SWEEPER] cleanup failed: %v", err)
			return
		}
		if removed > 0 {
			log.Printf("[SWEEPER] removed %d expired sessions", removed)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("[SWEEPER] scheduled %q (max age %v)", s.schedule, s.maxAge)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
}
