package glyph

import (
	"context"
	"errors"
)

// essentialRamp is the pulse sequence in percent of full pattern brightness.
var essentialRamp = []int{12, 24, 36, 48, 60}

// PlayEssential pulses the essential LED up to its floor and leaves the
// floor raised. When the floor is already raised it is re-asserted once.
func (e *Engine) PlayEssential(_ context.Context) (Outcome, error) {
	led, err := e.essentialLED()
	if err != nil {
		return OutcomeFailed, err
	}

	var active bool
	e.reg.View(func(st *State) { active = st.EssentialLEDActive })
	if active {
		if err := e.tf.WriteSingle(led, e.tf.Floor()); err != nil {
			return OutcomeFailed, newPlaybackError(ErrCodeSink, SourceEssential, "", err)
		}
		return OutcomeCompleted, nil
	}

	if e.closed.Load() {
		return OutcomeDenied, ErrClosed
	}
	return e.sched.Submit(Job{
		Source: SourceEssential,
		Wait:   true,
		Run: func(ctx context.Context) {
			_, _ = e.RunEssential(ctx)
		},
	}), nil
}

// RunEssential ramps the essential LED on the calling goroutine.
func (e *Engine) RunEssential(ctx context.Context) (Outcome, error) {
	led, err := e.essentialLED()
	if err != nil {
		return OutcomeFailed, err
	}
	// A request queued behind an earlier ramp finds the floor already raised.
	raised := false
	if !e.admit(ctx, SourceEssential, "", true, func(st *State) {
		raised = st.EssentialLEDActive
		st.AnimationActive = true
	}) {
		return OutcomeDenied, nil
	}
	if raised {
		err := e.tf.WriteSingle(led, e.tf.Floor())
		e.reg.Set(func(st *State) { st.AnimationActive = false })
		if err != nil {
			return OutcomeFailed, newPlaybackError(ErrCodeSink, SourceEssential, "", err)
		}
		return OutcomeCompleted, nil
	}

	r := e.begin(SourceEssential, "")
	outcome, err := e.rampEssential(ctx, r, led)

	e.reg.Set(func(st *State) {
		st.AnimationActive = false
		st.EssentialLEDActive = true
	})

	r.finish(outcome, err)
	return outcome, err
}

func (e *Engine) rampEssential(ctx context.Context, r *run, led int) (Outcome, error) {
	for _, percent := range essentialRamp {
		if e.interrupted(ctx, SourceEssential) {
			return OutcomeInterrupted, nil
		}
		if err := r.single(led, float64(percent)*e.max/100); err != nil {
			return OutcomeFailed, newPlaybackError(ErrCodeSink, SourceEssential, "", err)
		}
		if e.sleep(ctx, e.timing.Frame) != nil {
			return OutcomeInterrupted, nil
		}
	}
	return OutcomeCompleted, nil
}

// StopEssential lowers the floor. The LED is switched off only when nothing
// else owns the LEDs.
func (e *Engine) StopEssential(_ context.Context) (Outcome, error) {
	led, err := e.essentialLED()
	if err != nil {
		return OutcomeFailed, err
	}

	idle := false
	e.reg.Update(func(st *State) bool {
		st.EssentialLEDActive = false
		idle = !st.AnimationActive && !st.AllLEDActive
		return true
	})
	if !idle {
		return OutcomeSkipped, nil
	}
	if err := e.tf.WriteSingle(led, 0); err != nil {
		return OutcomeFailed, newPlaybackError(ErrCodeSink, SourceEssential, "", err)
	}
	return OutcomeCompleted, nil
}

func (e *Engine) essentialLED() (int, error) {
	led, err := e.resources.Integer(KeyEssentialLED)
	if err != nil {
		return 0, newPlaybackError(ErrCodeConfig, SourceEssential, KeyEssentialLED, err)
	}
	if led < 0 {
		return 0, newPlaybackError(ErrCodeConfig, SourceEssential, KeyEssentialLED, errors.New("negative index"))
	}
	return led, nil
}
