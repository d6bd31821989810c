package glyph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/smazurov/glyphnode/internal/events"
	"github.com/smazurov/glyphnode/internal/logging"
	"github.com/smazurov/glyphnode/internal/metrics"
	"github.com/smazurov/glyphnode/internal/tasks"
)

// Defaults for Options.
const (
	DefaultMaxPatternBrightness  = 4095
	DefaultEssentialFloorPercent = 60
	DefaultZeroFrameLength       = 5
)

// Timing holds the cadence of every playback loop.
type Timing struct {
	Frame        time.Duration // CSV, call and essential frames
	ProgressStep time.Duration // progress bar and dismiss steps
	MusicHold    time.Duration // music flash on-time
	Admission    time.Duration // longest wait at the admission gate
}

// DefaultTiming returns the 60 Hz frame cadence and the stock step timings.
func DefaultTiming() Timing {
	return Timing{
		Frame:        16666 * time.Microsecond,
		ProgressStep: 22 * time.Millisecond,
		MusicHold:    106 * time.Millisecond,
		Admission:    DefaultAdmissionTimeout,
	}
}

func (t Timing) withDefaults() Timing {
	d := DefaultTiming()
	if t.Frame <= 0 {
		t.Frame = d.Frame
	}
	if t.ProgressStep <= 0 {
		t.ProgressStep = d.ProgressStep
	}
	if t.MusicHold <= 0 {
		t.MusicHold = d.MusicHold
	}
	if t.Admission <= 0 {
		t.Admission = d.Admission
	}
	return t
}

// AutoDismiss hides a progress bar after it has been shown for the given
// duration. Zero disables it.
type AutoDismiss struct {
	Charging time.Duration
	Volume   time.Duration
}

// Options configures an Engine.
type Options struct {
	Sink       Sink
	Resources  Resources
	Brightness BrightnessSource
	EventBus   EventPublisher
	Logger     *slog.Logger

	Timing                Timing
	MaxPatternBrightness  int
	EssentialFloorPercent int
	ZeroFrameLength       int
	AutoDismiss           AutoDismiss
}

// Engine arbitrates between playback sources and drives the sink.
type Engine struct {
	reg       *Registry
	gate      *Gate
	probe     Probe
	tf        *Transformer
	sched     *Scheduler
	pool      tasks.Pool
	resources Resources
	bus       EventPublisher
	logger    *slog.Logger
	timing    Timing
	max       float64
	zeroLen   int
	dismiss   AutoDismiss

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	timersMu sync.Mutex
	timers   map[Source]*time.Timer
}

// New creates an engine and starts its scheduler worker.
func New(opts Options) (*Engine, error) {
	if opts.Sink == nil || opts.Resources == nil || opts.Brightness == nil {
		return nil, errors.New("glyph: sink, resources and brightness are required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("glyph")
	}
	var bus EventPublisher = nopPublisher{}
	if opts.EventBus != nil {
		bus = opts.EventBus
	}
	maxBrightness := opts.MaxPatternBrightness
	if maxBrightness <= 0 {
		maxBrightness = DefaultMaxPatternBrightness
	}
	floor := opts.EssentialFloorPercent
	if floor <= 0 {
		floor = DefaultEssentialFloorPercent
	}
	if floor > 100 {
		return nil, fmt.Errorf("glyph: essential floor %d%% above 100", floor)
	}
	zeroLen := opts.ZeroFrameLength
	if zeroLen <= 0 {
		zeroLen = DefaultZeroFrameLength
	}
	timing := opts.Timing.withDefaults()

	reg := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		reg:   reg,
		gate:  NewGate(reg, timing.Admission),
		probe: Probe{reg: reg},
		tf: &Transformer{
			sink:         opts.Sink,
			brightness:   opts.Brightness,
			resources:    opts.Resources,
			reg:          reg,
			max:          float64(maxBrightness),
			floorPercent: float64(floor),
		},
		resources: opts.Resources,
		bus:       bus,
		logger:    logger,
		timing:    timing,
		max:       float64(maxBrightness),
		zeroLen:   zeroLen,
		dismiss:   opts.AutoDismiss,
		ctx:       ctx,
		cancel:    cancel,
		timers:    make(map[Source]*time.Timer),
	}

	e.pool = tasks.NewPool(&tasks.PoolOptions{
		Logger: logging.GetLogger("tasks"),
		OnStateChange: func(id string, oldState, newState tasks.State, err error) {
			logger.Debug("Task state changed", "id", id, "from", oldState, "to", newState, "error", err)
		},
	})
	e.sched = newScheduler(ctx, e.pool, timing.Admission, logger, e.deny)
	if err := e.sched.start(); err != nil {
		cancel()
		return nil, err
	}

	return e, nil
}

// Close stops the call loop and the scheduler and waits for them.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.timersMu.Lock()
	for src, t := range e.timers {
		t.Stop()
		delete(e.timers, src)
	}
	e.timersMu.Unlock()

	e.reg.Set(func(st *State) { st.CallLEDEnabled = false })
	e.cancel()
	e.sched.wait()
	e.pool.StopAll()
	return nil
}

// Status returns a snapshot of the arbitration state.
func (e *Engine) Status() State {
	return e.reg.Snapshot()
}

// SetOverride marks every LED as held (or released) by an external
// collaborator. Running playback yields at its next frame.
func (e *Engine) SetOverride(active bool) {
	changed := false
	e.reg.Update(func(st *State) bool {
		changed = st.AllLEDActive != active
		st.AllLEDActive = active
		return changed
	})
	if !changed {
		return
	}
	e.logger.Info("LED override changed", "active", active)
	e.bus.Publish(events.OverrideChangedEvent{
		Active:    active,
		Timestamp: now(),
	})
}

// ShouldInterrupt exposes the interruption probe.
func (e *Engine) ShouldInterrupt(src Source) bool {
	return e.probe.ShouldInterrupt(src)
}

// Floor returns the essential floor in pattern units.
func (e *Engine) Floor() float64 {
	return e.tf.Floor()
}

func (e *Engine) admit(ctx context.Context, src Source, name string, wait bool, claim func(*State)) bool {
	if e.closed.Load() {
		e.deny(src, name, DenyShutdown)
		return false
	}
	if reason := e.gate.Admit(ctx, wait, claim); reason != Admitted {
		e.deny(src, name, reason)
		return false
	}
	return true
}

func (e *Engine) deny(src Source, name string, reason DenyReason) {
	e.logger.Debug("Playback denied", "source", src, "name", name, "reason", reason)
	metrics.RecordDenied(src.String(), string(reason))
	e.bus.Publish(events.AdmissionDeniedEvent{
		Source:    src.String(),
		Name:      name,
		Reason:    string(reason),
		Timestamp: now(),
	})
}

// sleep waits d or until ctx ends.
func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// interrupted samples the probe and the caller's context.
func (e *Engine) interrupted(ctx context.Context, src Source) bool {
	return ctx.Err() != nil || e.probe.ShouldInterrupt(src)
}

// run tracks one admitted playback for events, metrics and logs.
type run struct {
	e       *Engine
	id      string
	source  Source
	name    string
	started time.Time
	frames  int
}

func (e *Engine) begin(src Source, name string) *run {
	r := &run{
		e:       e,
		id:      uuid.NewString(),
		source:  src,
		name:    name,
		started: time.Now(),
	}
	e.logger.Debug("Playback started", "run_id", r.id, "source", src, "name", name)
	e.bus.Publish(events.AnimationStartedEvent{
		RunID:     r.id,
		Source:    src.String(),
		Name:      name,
		Timestamp: now(),
	})
	return r
}

func (r *run) frame(values []float64) error {
	if err := r.e.tf.WriteFrame(values); err != nil {
		return err
	}
	r.frames++
	return nil
}

func (r *run) fields(fields []string) error {
	if err := r.e.tf.WriteFields(fields); err != nil {
		return err
	}
	r.frames++
	return nil
}

func (r *run) single(led int, value float64) error {
	if err := r.e.tf.WriteSingle(led, value); err != nil {
		return err
	}
	r.frames++
	return nil
}

func (r *run) finish(outcome Outcome, err error) {
	elapsed := time.Since(r.started)
	metrics.RecordPlayback(r.source.String(), string(outcome), r.frames, elapsed.Seconds())

	ev := events.AnimationFinishedEvent{
		RunID:      r.id,
		Source:     r.source.String(),
		Name:       r.name,
		Outcome:    string(outcome),
		Frames:     r.frames,
		DurationMs: elapsed.Milliseconds(),
		Timestamp:  now(),
	}
	if err != nil {
		ev.Error = err.Error()
		r.e.logger.Warn("Playback failed", "run_id", r.id, "source", r.source, "name", r.name, "error", err)
	} else {
		r.e.logger.Debug("Playback finished", "run_id", r.id, "source", r.source, "outcome", outcome, "frames", r.frames)
	}
	r.e.bus.Publish(ev)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
