package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of scheduled work.
type Job func(ctx context.Context) error

type scheduledJob struct {
	name string
	spec string
	run  Job
}

// Scheduler runs jobs on cron schedules. It implements suture.Service: jobs
// only fire while Serve runs, and a job still running when its next tick
// arrives is skipped.
type Scheduler struct {
	jobs []scheduledJob
	log  *zap.Logger
}

// NewScheduler creates an empty scheduler.
func NewScheduler(log *zap.Logger) *Scheduler {
	return &Scheduler{log: log.Named("scheduler")}
}

// Add registers a job under a standard five-field cron spec or a descriptor
// such as "@hourly".
func (s *Scheduler) Add(name, spec string, run Job) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.jobs = append(s.jobs, scheduledJob{name: name, spec: spec, run: run})
	return nil
}

// Serve starts the cron loop and blocks until ctx is canceled, then waits
// for running jobs to return.
func (s *Scheduler) Serve(ctx context.Context) error {
	cl := cronLogger{s.log}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	for _, j := range s.jobs {
		if _, err := c.AddFunc(j.spec, func() { s.runJob(ctx, j) }); err != nil {
			return fmt.Errorf("schedule %s: %w", j.name, err)
		}
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

// RunNow executes every registered job once, in registration order.
func (s *Scheduler) RunNow(ctx context.Context) {
	for _, j := range s.jobs {
		s.runJob(ctx, j)
	}
}

func (s *Scheduler) runJob(ctx context.Context, j scheduledJob) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := j.run(ctx); err != nil {
		s.log.Error("job failed", zap.String("job", j.name), zap.Error(err))
		return
	}
	s.log.Debug("job done", zap.String("job", j.name), zap.Duration("took", time.Since(start)))
}

// String implements fmt.Stringer for supervisor logs.
func (s *Scheduler) String() string {
	return "scheduler"
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ l *zap.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

// BillingJob returns the scheduled rent sweep.
func BillingJob(b *BillingService) Job {
	return func(ctx context.Context) error {
		_, err := b.SweepRent(ctx, b.now())
		return err
	}
}

// TokenPruneJob returns the job that drops expired tokens from every ring.
func TokenPruneJob(t *TokenService) Job {
	return func(ctx context.Context) error {
		_, err := t.PruneExpired(ctx)
		return err
	}
}
