package server

import (
	"context"
	"fmt"
	"time"

	applogger "QuoteCache/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Job is a periodic task.
type Job struct {
	Name string
	// Spec is a standard five field cron expression or a descriptor such
	// as "@daily" or "@every 1h".
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Scheduler runs Jobs on cron schedules.
type Scheduler struct {
	cron *cron.Cron
	log  *applogger.Logger
	jobs []string
}

func NewScheduler(l *applogger.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:  l,
	}
}

// Add registers job. Overlapping runs of the same job are skipped.
func (s *Scheduler) Add(job Job) error {
	if _, err := s.cron.AddFunc(job.Spec, func() { s.run(job) }); err != nil {
		return fmt.Errorf("register %s: %w", job.Name, err)
	}
	s.jobs = append(s.jobs, job.Name)
	return nil
}

func (s *Scheduler) run(job Job) {
	ctx := context.Background()
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.log.Error("scheduled job failed", applogger.String("job", job.Name), applogger.Error(err))
		return
	}
	s.log.Debug("scheduled job done", applogger.String("job", job.Name), applogger.Duration("took_ms", time.Since(start)))
}

// Jobs lists registered job names.
func (s *Scheduler) Jobs() []string {
	return s.jobs
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", applogger.Strings("jobs", s.jobs))
}

// Stop stops scheduling and waits for running jobs or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped")
}
