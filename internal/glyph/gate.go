package glyph

import (
	"context"
	"time"
)

// DefaultAdmissionTimeout bounds how long a waiting request may queue behind
// a running animation.
const DefaultAdmissionTimeout = 2500 * time.Millisecond

// Gate decides whether a playback may start.
type Gate struct {
	reg     *Registry
	timeout time.Duration
}

// NewGate returns a gate over reg. A non-positive timeout selects
// DefaultAdmissionTimeout.
func NewGate(reg *Registry, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = DefaultAdmissionTimeout
	}
	return &Gate{reg: reg, timeout: timeout}
}

// Admit evaluates the override, the call lock and the animation lock in that
// order. With wait set, a busy animation lock is waited on until it clears,
// the admission timeout passes or ctx ends; every wake-up re-evaluates all
// three conditions. On admission claim runs under the registry lock, so the
// check and the claim are one step.
func (g *Gate) Admit(ctx context.Context, wait bool, claim func(*State)) DenyReason {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	for {
		reason := Admitted
		queued := false
		ch := g.reg.Update(func(st *State) bool {
			switch {
			case st.AllLEDActive:
				reason = DenyOverride
			case st.CallLEDActive:
				reason = DenyCall
			case st.AnimationActive && !wait:
				reason = DenyBusy
			case st.AnimationActive:
				queued = true
			default:
				if claim == nil {
					return false
				}
				claim(st)
				return true
			}
			return false
		})

		if !queued {
			return reason
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return DenyTimeout
		}
	}
}

// claimAnimation marks the generic animation lock as held.
func claimAnimation(st *State) {
	st.AnimationActive = true
}
