package glyph

import (
	"context"
	"io"
)

// PlayCall requests the in-call loop. Every other source is preempted as
// soon as the request is registered; the loop itself starts once the gate
// admits it and keeps replaying the call animation until StopCall.
func (e *Engine) PlayCall(ctx context.Context, name string) (Outcome, error) {
	if e.closed.Load() {
		return OutcomeDenied, ErrClosed
	}

	e.reg.Set(func(st *State) { st.CallLEDEnabled = true })

	// StopCall may disable the request while it waits at the gate.
	claimed := false
	if !e.admit(ctx, SourceCall, name, true, func(st *State) {
		claimed = st.CallLEDEnabled
		st.CallLEDActive = claimed
	}) {
		return OutcomeDenied, nil
	}
	if !claimed {
		e.logger.Debug("Call stopped before admission", "name", name)
		return OutcomeDenied, nil
	}

	if err := e.pool.Start(callTaskID, func(ctx context.Context) error {
		return e.callLoop(ctx, name)
	}); err != nil {
		e.reg.Set(func(st *State) { st.CallLEDActive = false })
		return OutcomeFailed, newPlaybackError(ErrCodeResource, SourceCall, name, err)
	}
	return OutcomeStarted, nil
}

func (e *Engine) callLoop(ctx context.Context, name string) error {
	r := e.begin(SourceCall, name)
	defer func() {
		outcome := OutcomeCompleted
		if e.callEnabled() {
			outcome = OutcomeInterrupted
		}
		e.reg.Set(func(st *State) { st.CallLEDActive = false })
		r.finish(outcome, nil)
	}()

	open := func() (io.ReadCloser, error) {
		return e.resources.CallAnimation(name)
	}

	for e.callEnabled() && ctx.Err() == nil {
		before := r.frames
		_, err := e.playAnimation(ctx, r, SourceCall, open)
		if err != nil {
			e.logger.Warn("Call animation pass failed", "name", name, "error", err)
		}
		// A pass that wrote nothing must still yield for one frame.
		if err != nil || r.frames == before {
			if e.sleep(ctx, e.timing.Frame) != nil {
				break
			}
		}

		// Hold while a collaborator owns the LEDs.
		if err := e.reg.WaitFor(ctx, func(st State) bool {
			return !st.AllLEDActive || !st.CallLEDEnabled
		}); err != nil {
			break
		}
	}
	return nil
}

func (e *Engine) callEnabled() bool {
	var enabled bool
	e.reg.View(func(st *State) { enabled = st.CallLEDEnabled })
	return enabled
}

// StopCall ends the call loop, joins it and clears the LEDs.
func (e *Engine) StopCall(_ context.Context) (Outcome, error) {
	wasEnabled := false
	e.reg.Update(func(st *State) bool {
		wasEnabled = st.CallLEDEnabled
		st.CallLEDEnabled = false
		return true
	})

	stopErr := e.pool.Stop(callTaskID)

	err := e.tf.Clear(e.zeroLen)
	e.reg.Set(func(st *State) { st.CallLEDActive = false })

	if stopErr != nil {
		e.logger.Warn("Call loop did not stop in time", "error", stopErr)
	}
	if err != nil {
		return OutcomeFailed, newPlaybackError(ErrCodeSink, SourceCall, "", err)
	}
	if !wasEnabled {
		return OutcomeSkipped, nil
	}
	return OutcomeCompleted, nil
}
