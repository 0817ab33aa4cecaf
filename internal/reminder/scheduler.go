package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/erazemk/zastavljalnica/internal/config"
)

// jobTimeout bounds one scheduled run.
const jobTimeout = 2 * time.Minute

// Scheduler runs the reminder job on cron schedules.
type Scheduler struct {
	cron *cron.Cron
	job  *Job
}

// NewScheduler registers the expiry, interest and report runs. Schedules are
// evaluated in loc.
func NewScheduler(cfg config.ReminderConfig, loc *time.Location, job *Job) (*Scheduler, error) {
	s := &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		job:  job,
	}

	entries := []struct {
		name string
		spec string
		run  func(context.Context) (Result, error)
	}{
		{"expiry reminders", cfg.ExpiryCron, job.SendExpiryReminders},
		{"interest reminders", cfg.InterestCron, job.SendInterestReminders},
		{"daily report", cfg.ReportCron, job.SendDailyReport},
	}
	for _, e := range entries {
		if _, err := s.cron.AddFunc(e.spec, s.wrap(e.name, e.run)); err != nil {
			return nil, fmt.Errorf("scheduling %s: %w", e.name, err)
		}
	}
	return s, nil
}

// Start starts the scheduler in the background.
func (s *Scheduler) Start() {
	slog.Info("starting reminder scheduler", "entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish or ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) {
	slog.Info("stopping reminder scheduler")
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Entries returns the number of registered schedules.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) wrap(name string, run func(context.Context) (Result, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if _, err := run(ctx); err != nil {
			slog.Error("scheduled run failed", "job", name, "error", err)
		}
	}
}
