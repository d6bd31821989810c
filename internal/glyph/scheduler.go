package glyph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/glyphnode/internal/tasks"
)

const (
	schedulerTaskID = "scheduler"
	callTaskID      = "call"
)

// Job is a scheduled CSV or essential playback.
type Job struct {
	Source Source
	Name   string
	Wait   bool
	Run    func(ctx context.Context)
}

// Scheduler runs jobs on one long-lived worker, one job at a time.
type Scheduler struct {
	ctx      context.Context
	pool     tasks.Pool
	jobs     chan Job
	slot     chan struct{}
	timeout  time.Duration
	logger   *slog.Logger
	onDenied func(Source, string, DenyReason)

	mu      sync.Mutex
	stopped bool
	waiters sync.WaitGroup
}

func newScheduler(ctx context.Context, pool tasks.Pool, timeout time.Duration, logger *slog.Logger, onDenied func(Source, string, DenyReason)) *Scheduler {
	return &Scheduler{
		ctx:      ctx,
		pool:     pool,
		jobs:     make(chan Job, 1),
		slot:     make(chan struct{}, 1),
		timeout:  timeout,
		logger:   logger,
		onDenied: onDenied,
	}
}

func (s *Scheduler) start() error {
	if err := s.pool.Start(schedulerTaskID, s.loop); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	return nil
}

func (s *Scheduler) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-s.jobs:
			s.execute(ctx, job)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job Job) {
	defer func() { <-s.slot }()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled job panicked", "source", job.Source, "name", job.Name, "panic", r)
		}
	}()
	job.Run(ctx)
}

// Submit hands job to the worker. A busy worker denies jobs that do not
// wait; waiting jobs queue for the slot up to the admission timeout.
func (s *Scheduler) Submit(job Job) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.ctx.Err() != nil {
		s.onDenied(job.Source, job.Name, DenyShutdown)
		return OutcomeDenied
	}

	select {
	case s.slot <- struct{}{}:
		s.jobs <- job
		return OutcomeScheduled
	default:
	}

	if !job.Wait {
		s.onDenied(job.Source, job.Name, DenyBusy)
		return OutcomeDenied
	}

	s.waiters.Add(1)
	go s.queue(job)
	return OutcomeScheduled
}

func (s *Scheduler) queue(job Job) {
	defer s.waiters.Done()

	t := time.NewTimer(s.timeout)
	defer t.Stop()

	select {
	case s.slot <- struct{}{}:
		s.jobs <- job
	case <-t.C:
		s.onDenied(job.Source, job.Name, DenyTimeout)
	case <-s.ctx.Done():
		s.onDenied(job.Source, job.Name, DenyShutdown)
	}
}

// Busy reports whether a job holds the slot.
func (s *Scheduler) Busy() bool {
	return len(s.slot) > 0
}

// wait blocks new submissions and joins queued waiters.
func (s *Scheduler) wait() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.waiters.Wait()
}
