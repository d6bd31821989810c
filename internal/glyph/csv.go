package glyph

import (
	"context"
	"errors"
	"io"
)

// PlayCSV schedules a scripted animation on the worker and returns without
// waiting for it.
func (e *Engine) PlayCSV(name string, wait bool) (Outcome, error) {
	if e.closed.Load() {
		return OutcomeDenied, ErrClosed
	}
	outcome := e.sched.Submit(Job{
		Source: SourceCSV,
		Name:   name,
		Wait:   wait,
		Run: func(ctx context.Context) {
			_, _ = e.RunCSV(ctx, name, wait)
		},
	})
	return outcome, nil
}

// RunCSV plays a scripted animation on the calling goroutine.
func (e *Engine) RunCSV(ctx context.Context, name string, wait bool) (Outcome, error) {
	if !e.admit(ctx, SourceCSV, name, wait, claimAnimation) {
		return OutcomeDenied, nil
	}

	r := e.begin(SourceCSV, name)
	outcome, err := e.playAnimation(ctx, r, SourceCSV, func() (io.ReadCloser, error) {
		return e.resources.Animation(name)
	})

	if clearErr := e.tf.Clear(e.zeroLen); clearErr != nil && err == nil {
		outcome, err = OutcomeFailed, newPlaybackError(ErrCodeSink, SourceCSV, name, clearErr)
	}
	e.reg.Set(func(st *State) { st.AnimationActive = false })

	r.finish(outcome, err)
	return outcome, err
}

// playAnimation opens a stream and plays it frame by frame, sampling the
// probe for src before each frame.
func (e *Engine) playAnimation(ctx context.Context, r *run, src Source, open func() (io.ReadCloser, error)) (Outcome, error) {
	rc, err := open()
	if err != nil {
		return OutcomeFailed, newPlaybackError(ErrCodeResource, src, r.name, err)
	}
	defer rc.Close()

	frames := NewFrameReader(rc, e.resources.SupportedPatternLengths())
	for {
		fields, err := frames.Next()
		switch {
		case errors.Is(err, io.EOF):
			return OutcomeCompleted, nil
		case errors.Is(err, ErrUnsupportedLength):
			return OutcomeFailed, newPlaybackError(ErrCodeMalformed, src, r.name, err)
		case err != nil:
			return OutcomeFailed, newPlaybackError(ErrCodeResource, src, r.name, err)
		}

		if e.interrupted(ctx, src) {
			return OutcomeInterrupted, nil
		}

		if err := r.fields(fields); err != nil {
			if errors.Is(err, ErrMalformedFrame) {
				return OutcomeFailed, newPlaybackError(ErrCodeMalformed, src, r.name, err)
			}
			return OutcomeFailed, newPlaybackError(ErrCodeSink, src, r.name, err)
		}

		if e.sleep(ctx, e.timing.Frame) != nil {
			return OutcomeInterrupted, nil
		}
	}
}
