package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docrestyle/internal/foundation/errors"
)

// Scheduler wraps gocron for the periodic full-site sweep.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDaemon, "failed to create gocron scheduler").Build()
	}
	return &Scheduler{scheduler: s}, nil
}

// ScheduleSweep runs sweep every interval. A sweep still running when the next
// one is due causes that one to be skipped rather than queued.
func (s *Scheduler) ScheduleSweep(ctx context.Context, interval time.Duration, sweep func(context.Context)) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { sweep(ctx) }),
		gocron.WithName("site-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryDaemon, "failed to schedule sweep").
			WithContext("interval", interval.String()).Build()
	}
	return job.ID().String(), nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}
