package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task is the body of a managed goroutine. It must return when ctx is done.
type Task func(ctx context.Context) error

// ErrStopTimeout is returned by Stop when a task ignores cancellation.
var ErrStopTimeout = errors.New("tasks: timeout waiting for task to stop")

// Pool manages named long-lived tasks.
type Pool interface {
	// Start launches task under id. Returns error if id is already running.
	Start(id string, task Task) error

	// Stop cancels the task and waits for it to return.
	Stop(id string) error

	// GetStatus returns task info. Returns idle state if not found.
	GetStatus(id string) *Info

	// IsRunning reports whether id is running.
	IsRunning(id string) bool

	// StopAll cancels and joins every task.
	StopAll()
}

type managedTask struct {
	id        string
	state     State
	startedAt time.Time
	runs      int
	lastError error
	cancel    context.CancelFunc
	done      chan struct{}
}

type pool struct {
	opts   PoolOptions
	tasks  map[string]*managedTask
	mu     sync.Mutex
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a new task pool.
func NewPool(opts *PoolOptions) Pool {
	if opts == nil {
		opts = &PoolOptions{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &pool{
		opts:   *opts,
		tasks:  make(map[string]*managedTask),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches task under id.
func (p *pool) Start(id string, task Task) error {
	if task == nil {
		return fmt.Errorf("task %s: nil task", id)
	}

	p.mu.Lock()
	if p.ctx.Err() != nil {
		p.mu.Unlock()
		return fmt.Errorf("task %s: pool stopped", id)
	}

	mt, exists := p.tasks[id]
	if exists && (mt.state == StateRunning || mt.state == StateStopping) {
		p.mu.Unlock()
		return fmt.Errorf("task %s already running", id)
	}

	runs := 0
	oldState := StateIdle
	if exists {
		runs = mt.runs
		oldState = mt.state
	}

	ctx, cancel := context.WithCancel(p.ctx)
	mt = &managedTask{
		id:        id,
		state:     StateRunning,
		startedAt: time.Now(),
		runs:      runs + 1,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	p.tasks[id] = mt
	p.wg.Add(1)
	p.mu.Unlock()

	p.notifyStateChange(id, oldState, StateRunning, nil)
	p.logger.Debug("Task started", "id", id)

	go func() {
		defer p.wg.Done()
		defer close(mt.done)
		p.run(ctx, mt, task)
	}()

	return nil
}

func (p *pool) run(ctx context.Context, mt *managedTask, task Task) {
	err := task(ctx)

	p.mu.Lock()
	oldState := mt.state
	switch {
	case err != nil && ctx.Err() == nil:
		mt.state = StateError
		mt.lastError = err
		p.logger.Error("Task failed", "id", mt.id, "error", err)
	default:
		mt.state = StateIdle
	}
	newState := mt.state
	mt.cancel()
	p.mu.Unlock()

	p.notifyStateChange(mt.id, oldState, newState, err)
	p.logger.Debug("Task finished", "id", mt.id, "state", newState)
}

// Stop cancels id and joins it.
func (p *pool) Stop(id string) error {
	p.mu.Lock()
	mt, exists := p.tasks[id]
	if !exists || (mt.state != StateRunning && mt.state != StateStopping) {
		p.mu.Unlock()
		return nil
	}
	oldState := mt.state
	mt.state = StateStopping
	p.mu.Unlock()

	if oldState != StateStopping {
		p.notifyStateChange(id, oldState, StateStopping, nil)
	}

	mt.cancel()

	timeout := p.opts.StopTimeout
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}

	select {
	case <-mt.done:
		return nil
	case <-time.After(timeout):
		p.logger.Warn("Timeout waiting for task to stop", "id", id, "timeout", timeout)
		return fmt.Errorf("%w: %s", ErrStopTimeout, id)
	}
}

// GetStatus returns task info.
func (p *pool) GetStatus(id string) *Info {
	p.mu.Lock()
	defer p.mu.Unlock()

	mt, exists := p.tasks[id]
	if !exists {
		return &Info{ID: id, State: StateIdle}
	}
	return &Info{
		ID:        id,
		State:     mt.state,
		StartedAt: mt.startedAt,
		Runs:      mt.runs,
		LastError: mt.lastError,
	}
}

// IsRunning reports whether id is running.
func (p *pool) IsRunning(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	mt, exists := p.tasks[id]
	return exists && mt.state == StateRunning
}

// StopAll cancels and joins every task. The pool cannot be reused.
func (p *pool) StopAll() {
	p.mu.Lock()
	p.cancel()
	ids := make([]string, 0, len(p.tasks))
	for id := range p.tasks {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		_ = p.Stop(id)
	}

	p.wg.Wait()
	p.logger.Debug("All tasks stopped")
}

func (p *pool) notifyStateChange(id string, oldState, newState State, err error) {
	if p.opts.OnStateChange != nil {
		p.opts.OnStateChange(id, oldState, newState, err)
	}
}
