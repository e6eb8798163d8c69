// Package worker runs the background jobs of the ledger on cron schedules.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one unit of scheduled work.
type Job interface {
	Name() string
	RunOnce(ctx context.Context) error
}

// Scheduler runs jobs on cron specs. A job never overlaps with itself.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
}

func NewScheduler(jobTimeout time.Duration) *Scheduler {
	if jobTimeout <= 0 {
		jobTimeout = 10 * time.Minute
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(time.UTC), cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		timeout: jobTimeout,
	}
}

// Add schedules job under spec. An empty spec leaves the job disabled.
func (s *Scheduler) Add(ctx context.Context, spec string, job Job) error {
	if spec == "" {
		zap.L().Info("scheduled job disabled", zap.String("job", job.Name()))
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		zap.L().Debug("scheduled job starting", zap.String("job", job.Name()))
		_ = job.RunOnce(runCtx)
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name(), spec, err)
	}
	zap.L().Info("scheduled job registered", zap.String("job", job.Name()), zap.String("schedule", spec))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
