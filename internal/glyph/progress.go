package glyph

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/smazurov/glyphnode/internal/metrics"
)

// progressKind describes one progress bar source.
type progressKind struct {
	source    Source
	levelsKey string
	dotKey    string
	target    func(level, n int) int
}

var (
	chargingBar = progressKind{
		source:    SourceCharging,
		levelsKey: KeyBatteryLevels,
		dotKey:    KeyBatteryDot,
		target: func(level, n int) int {
			return int(math.Floor(float64(level)/100*float64(n))) - 1
		},
	}
	volumeBar = progressKind{
		source:    SourceVolume,
		levelsKey: KeyVolumeLevels,
		target: func(level, n int) int {
			return int(math.Round(float64(level)/100*float64(n))) - 1
		},
	}
)

// PlayCharging animates the charging bar from its cached state to level.
func (e *Engine) PlayCharging(ctx context.Context, level int, wait bool) (Outcome, error) {
	return e.playProgress(ctx, chargingBar, level, wait)
}

// DismissCharging clears the charging bar from the top down.
func (e *Engine) DismissCharging(ctx context.Context) (Outcome, error) {
	return e.dismissProgress(ctx, chargingBar)
}

// PlayVolume animates the volume bar from its cached state to level.
func (e *Engine) PlayVolume(ctx context.Context, level int, wait bool) (Outcome, error) {
	return e.playProgress(ctx, volumeBar, level, wait)
}

// DismissVolume clears the volume bar from the top down.
func (e *Engine) DismissVolume(ctx context.Context) (Outcome, error) {
	return e.dismissProgress(ctx, volumeBar)
}

// ProgressTarget returns the highest index lit for level on an n-zone bar of
// src; -1 means nothing lit.
func ProgressTarget(src Source, level, n int) int {
	level = min(max(level, 0), 100)
	if src == SourceVolume {
		return volumeBar.target(level, n)
	}
	return chargingBar.target(level, n)
}

// DotTarget is ProgressTarget for a charging bar whose first zone is a
// battery dot: the dot is lit for any non-zero level and the remaining n-1
// zones above it follow the level.
func DotTarget(level, n int) int {
	level = min(max(level, 0), 100)
	if level == 0 {
		return -1
	}
	return int(math.Floor(float64(level)/100*float64(n-2))) + 1
}

// batteryDot reports whether kind shows a battery dot on an n-zone bar.
// A missing tunable means no dot.
func (e *Engine) batteryDot(kind progressKind, n int) bool {
	if kind.dotKey == "" || n < 2 {
		return false
	}
	dot, err := e.resources.Boolean(kind.dotKey)
	if err != nil {
		e.logger.Debug("Battery dot tunable unavailable", "key", kind.dotKey, "error", err)
		return false
	}
	return dot
}

func (e *Engine) barSize(kind progressKind) (int, error) {
	n, err := e.resources.Integer(kind.levelsKey)
	if err != nil {
		return 0, newPlaybackError(ErrCodeConfig, kind.source, kind.levelsKey, err)
	}
	if n <= 0 {
		return 0, newPlaybackError(ErrCodeConfig, kind.source, kind.levelsKey, fmt.Errorf("level count %d", n))
	}
	return n, nil
}

func (e *Engine) playProgress(ctx context.Context, kind progressKind, level int, wait bool) (Outcome, error) {
	src := kind.source
	name := src.String()
	level = min(max(level, 0), 100)

	n, err := e.barSize(kind)
	if err != nil {
		return OutcomeFailed, err
	}
	e.cancelAutoDismiss(src)

	if !e.admit(ctx, src, name, wait, func(st *State) {
		st.AnimationActive = true
		bar := st.progress(src)
		bar.Active = true
		if len(bar.Levels) != n {
			bar.reset(n)
		}
	}) {
		return OutcomeDenied, nil
	}

	r := e.begin(src, name)
	dot := e.batteryDot(kind, n)
	next := kind.target(level, n)
	if dot {
		next = DotTarget(level, n)
	}
	outcome, err := e.stepProgress(ctx, r, next, dot)

	if outcome == OutcomeInterrupted {
		cleared := false
		e.reg.Set(func(st *State) {
			if st.AllLEDActive {
				return
			}
			bar := st.progress(src)
			bar.reset(n)
			bar.Active = false
			cleared = true
		})
		if cleared {
			if zeroErr := e.tf.WriteFrame(make([]float64, n)); zeroErr != nil && err == nil {
				outcome, err = OutcomeFailed, newPlaybackError(ErrCodeSink, src, name, zeroErr)
			}
		}
	}

	last := 0
	e.reg.Set(func(st *State) {
		st.AnimationActive = false
		last = st.progress(src).Last
	})
	metrics.SetProgressLast(name, last)

	if outcome == OutcomeCompleted {
		e.scheduleAutoDismiss(src)
	}

	r.finish(outcome, err)
	return outcome, err
}

// stepProgress lights or clears one zone per step until Last reaches next.
// Ascending runs start above an already lit Last. With dot set, zone 0 is
// lit together with the first step instead of on its own.
func (e *Engine) stepProgress(ctx context.Context, r *run, next int, dot bool) (Outcome, error) {
	src := r.source

	var from int
	ascending := true
	e.reg.View(func(st *State) {
		bar := st.progress(src)
		from = bar.Last
		switch {
		case bar.Last > next:
			ascending = false
		case bar.Levels[bar.Last] > 0:
			from = bar.Last + 1
		}
	})

	step := func(i int) bool { return i <= next }
	delta := 1
	if !ascending {
		step = func(i int) bool { return i > next }
		delta = -1
	}

	for i := from; step(i); i += delta {
		if e.interrupted(ctx, src) {
			return OutcomeInterrupted, nil
		}

		var frame []float64
		e.reg.Set(func(st *State) {
			bar := st.progress(src)
			if ascending {
				bar.Last = i
				bar.Levels[i] = int(e.max)
			} else {
				bar.Levels[i] = 0
				bar.Last = max(i-1, 0)
			}
			frame = toFloats(bar.Levels)
		})

		if dot && ascending && i == 0 {
			continue
		}
		if err := r.frame(frame); err != nil {
			return OutcomeFailed, newPlaybackError(ErrCodeSink, src, r.name, err)
		}
		if e.sleep(ctx, e.timing.ProgressStep) != nil {
			return OutcomeInterrupted, nil
		}
	}
	return OutcomeCompleted, nil
}

func (e *Engine) dismissProgress(ctx context.Context, kind progressKind) (Outcome, error) {
	src := kind.source
	name := src.String()
	e.cancelAutoDismiss(src)

	lit := false
	e.reg.Update(func(st *State) bool {
		bar := st.progress(src)
		if lit = bar.lit(); lit {
			return false
		}
		bar.Active = false
		bar.Last = 0
		return true
	})
	if !lit {
		return OutcomeSkipped, nil
	}

	if !e.admit(ctx, SourceDismiss, name, false, claimAnimation) {
		return OutcomeDenied, nil
	}

	r := e.begin(SourceDismiss, name)
	outcome, err := e.clearProgress(ctx, r, src)

	e.reg.Set(func(st *State) {
		bar := st.progress(src)
		bar.reset(len(bar.Levels))
		bar.Active = false
		st.AnimationActive = false
	})
	metrics.SetProgressLast(name, 0)

	r.finish(outcome, err)
	return outcome, err
}

// clearProgress zeroes lit zones from the top down, one step each.
func (e *Engine) clearProgress(ctx context.Context, r *run, src Source) (Outcome, error) {
	var n int
	e.reg.View(func(st *State) { n = len(st.progress(src).Levels) })

	for i := n - 1; i >= 0; i-- {
		var frame []float64
		e.reg.View(func(st *State) {
			bar := st.progress(src)
			if bar.Levels[i] != 0 {
				frame = toFloats(bar.Levels)
				frame[i] = 0
			}
		})
		if frame == nil {
			continue
		}

		if e.interrupted(ctx, SourceDismiss) {
			return OutcomeInterrupted, nil
		}
		e.reg.Set(func(st *State) {
			bar := st.progress(src)
			bar.Levels[i] = 0
			bar.Last = max(i-1, 0)
		})
		if err := r.frame(frame); err != nil {
			return OutcomeFailed, newPlaybackError(ErrCodeSink, SourceDismiss, r.name, err)
		}
		if e.sleep(ctx, e.timing.ProgressStep) != nil {
			return OutcomeInterrupted, nil
		}
	}
	return OutcomeCompleted, nil
}

func (e *Engine) scheduleAutoDismiss(src Source) {
	var d time.Duration
	dismiss := e.DismissCharging
	switch src {
	case SourceCharging:
		d = e.dismiss.Charging
	case SourceVolume:
		d = e.dismiss.Volume
		dismiss = e.DismissVolume
	}
	if d <= 0 || e.closed.Load() {
		return
	}

	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	if t, ok := e.timers[src]; ok {
		t.Stop()
	}
	e.timers[src] = time.AfterFunc(d, func() {
		if _, err := dismiss(e.ctx); err != nil {
			e.logger.Warn("Auto dismiss failed", "source", src, "error", err)
		}
	})
}

func (e *Engine) cancelAutoDismiss(src Source) {
	e.timersMu.Lock()
	defer e.timersMu.Unlock()
	if t, ok := e.timers[src]; ok {
		t.Stop()
		delete(e.timers, src)
	}
}

func toFloats(values []int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}
