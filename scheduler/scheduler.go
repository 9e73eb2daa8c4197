// Package scheduler triggers workflow runs on a cron schedule when the service
// runs as a long-lived process instead of behind an external cron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"auto_linkedin_post_publisher/logging"
	"auto_linkedin_post_publisher/workflow"
)

// Runner is one workflow invocation (workflow.Orchestrator).
type Runner interface {
	Run(ctx context.Context, topic string) (workflow.Outcome, error)
}

// Scheduler fires Runner on every tick. A tick is skipped while the previous
// run is still going, so two runs never overlap.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	schedule string
	logger   *slog.Logger

	mu       sync.Mutex
	ctx      context.Context
	entry    cron.EntryID
	stopOnce sync.Once
	stopped  chan struct{}
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New validates schedule (five-field cron or @every/@daily descriptors).
func New(schedule string, runner Runner, logger *slog.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("runner is nil")
	}
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	logger = logging.OrDefault(logger, "scheduler")
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron:     cron.New(cron.WithParser(parser), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		runner:   runner,
		schedule: schedule,
		logger:   logger,
		stopped:  make(chan struct{}),
	}, nil
}

// Start registers the job and returns immediately. Runs stop being scheduled
// once ctx ends; the one in flight sees ctx canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry != 0 {
		return errors.New("scheduler already started")
	}
	s.ctx = ctx
	id, err := s.cron.AddFunc(s.schedule, s.tick)
	if err != nil {
		return err
	}
	s.entry = id
	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.schedule, "next", s.cron.Entry(id).Next)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop waits for a running job to finish. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		<-s.cron.Stop().Done()
		close(s.stopped)
		s.logger.Info("scheduler stopped")
	})
}

// Done is closed once Stop has returned.
func (s *Scheduler) Done() <-chan struct{} {
	return s.stopped
}

// Next reports when the job fires next; zero before Start.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	out, err := s.runner.Run(ctx, "")
	if err != nil {
		s.logger.Error("scheduled run failed", "run_id", out.RunID, "topic", out.Topic, "err", err)
		return
	}
	s.logger.Info("scheduled run finished", "run_id", out.RunID, "topic", out.Topic, "score", out.Score)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "err", err)...)
}
