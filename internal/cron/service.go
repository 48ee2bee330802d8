package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	robfig "github.com/robfig/cron/v3"
	"github.com/subhub/telecom-subscriptions/pkg/logger"
	"github.com/subhub/telecom-subscriptions/pkg/metrics"
)

const defaultSchedule = "*/5 * * * *"

// ServiceParams configure the cron service. A positive Interval takes
// precedence over Schedule.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Schedule string
	Interval time.Duration
	Now      func() time.Time
}

// Service runs every registered job once per cycle while holding the cluster lease.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	schedule robfig.Schedule
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	schedule, err := parseSchedule(params.Schedule, params.Interval)
	if err != nil {
		return nil, err
	}

	s := &Service{
		logg:     params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		schedule: schedule,
		now:      params.Now,
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func parseSchedule(spec string, interval time.Duration) (robfig.Schedule, error) {
	if interval > 0 {
		return robfig.Every(interval), nil
	}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = defaultSchedule
	}
	schedule, err := robfig.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// Next reports when the cycle after t is due.
func (s *Service) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run executes a cycle immediately, then hands the schedule to a robfig runner until
// ctx is canceled. Overlapping ticks are dropped. Run waits for an in-flight cycle
// before returning ctx.Err().
func (s *Service) Run(ctx context.Context) error {
	s.tick(ctx)

	bridge := runnerLogger{logg: s.logg, ctx: ctx}
	runner := robfig.New(
		robfig.WithLocation(time.UTC),
		robfig.WithLogger(bridge),
		robfig.WithChain(robfig.Recover(bridge), robfig.SkipIfStillRunning(bridge)),
	)
	runner.Schedule(s.schedule, robfig.FuncJob(func() { s.tick(ctx) }))
	runner.Start()

	<-ctx.Done()
	s.logg.Info(ctx, "cron.stopping")
	<-runner.Stop().Done()
	return ctx.Err()
}

func (s *Service) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "cron.cycle_failed", err)
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !held {
		if reporter, ok := s.lock.(holderReporter); ok {
			if holder, err := reporter.Holder(ctx); err == nil && holder != "" {
				ctx = s.logg.WithField(ctx, "lock_holder", holder)
			}
		}
		s.logg.Info(ctx, "cron.cycle_skipped")
		s.metrics.IncSkipped()
		return nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron.lock_release_failed", err)
		}
	}()

	for _, job := range s.registry.Jobs() {
		s.runJob(ctx, job)
	}
	return nil
}

// runJob isolates failures so one job cannot starve the rest of the cycle.
func (s *Service) runJob(ctx context.Context, job Job) {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	started := s.now()
	err := job.Run(ctx)
	finished := s.now()
	took := finished.Sub(started)

	s.metrics.ObserveRun(job.Name(), took, finished, err)
	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "cron.job_failed", err)
		return
	}
	s.logg.Info(ctx, "cron.job_completed")
}

// runnerLogger adapts the service logger to robfig's logr-style interface.
type runnerLogger struct {
	logg *logger.Logger
	ctx  context.Context
}

func (l runnerLogger) Info(msg string, keysAndValues ...any) {
	l.logg.Debug(l.with(keysAndValues), "cron.runner."+msg)
}

func (l runnerLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logg.Error(l.with(keysAndValues), "cron.runner."+msg, err)
}

func (l runnerLogger) with(kv []any) context.Context {
	fields := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return l.logg.WithFields(l.ctx, fields)
}
