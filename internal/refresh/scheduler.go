// Package refresh runs periodic jobs (resync, preview capture) on a cron
// schedule while the server is up.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "weekcal/internal/log"
)

// Disabled is the schedule value that turns periodic refresh off.
const Disabled = "-"

// Job is one named periodic task.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler runs jobs on a standard 5-field cron spec. A run that is still
// going when the next tick fires is skipped.
type Scheduler struct {
	spec string
	loc  *time.Location
	jobs []Job
}

// New validates spec and returns a scheduler. spec "-" or "" yields a
// scheduler whose Run only waits for cancellation.
func New(spec string, loc *time.Location, jobs ...Job) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	if spec != "" && spec != Disabled {
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("refresh: bad schedule %q: %w", spec, err)
		}
	}
	for _, j := range jobs {
		if j.Run == nil {
			return nil, errors.New("refresh: job " + j.Name + " has no Run")
		}
	}
	return &Scheduler{spec: spec, loc: loc, jobs: jobs}, nil
}

// Enabled reports whether the scheduler fires at all.
func (s *Scheduler) Enabled() bool {
	return s.spec != "" && s.spec != Disabled && len(s.jobs) > 0
}

// RunOnce runs every job in order, logging failures. It returns the first
// error.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var first error
	for _, j := range s.jobs {
		started := time.Now()
		if err := j.Run(ctx); err != nil {
			appLog.Error("refresh job failed", err, "job", j.Name)
			if first == nil {
				first = err
			}
			continue
		}
		appLog.Debug("refresh job done", "job", j.Name, "elapsed", time.Since(started))
	}
	return first
}

// Run starts the cron loop and blocks until ctx is done. Jobs in flight are
// waited for before it returns.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.Enabled() {
		appLog.Info("refresh disabled")
		<-ctx.Done()
		return nil
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(s.spec, func() { _ = s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	appLog.Info("refresh scheduler started", "schedule", s.spec, "jobs", len(s.jobs))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("refresh scheduler stopped")
	return nil
}

// cronLogger routes cron's own logging through the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
