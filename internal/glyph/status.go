package glyph

import (
	"context"
	"slices"
	"sync"
)

// ProgressState is the cached visual state of a progress bar.
type ProgressState struct {
	// Active is true between a play and the matching dismiss.
	Active bool `json:"active" doc:"Bar is in its shown state"`
	// Last is the highest lit index.
	Last   int   `json:"last" doc:"Highest lit index"`
	Levels []int `json:"levels" doc:"Per-zone pattern values of the bar"`
}

func (p ProgressState) clone() ProgressState {
	p.Levels = slices.Clone(p.Levels)
	return p
}

func (p ProgressState) lit() bool {
	for _, v := range p.Levels {
		if v != 0 {
			return true
		}
	}
	return false
}

func (p *ProgressState) reset(n int) {
	if len(p.Levels) != n {
		p.Levels = make([]int, n)
	} else {
		clear(p.Levels)
	}
	p.Last = 0
}

// State is the process-wide arbitration state.
type State struct {
	AnimationActive    bool          `json:"animation_active" doc:"A generic animation owns the LEDs"`
	CallLEDEnabled     bool          `json:"call_led_enabled" doc:"Call loop requested and not stopped"`
	CallLEDActive      bool          `json:"call_led_active" doc:"Call loop is running"`
	AllLEDActive       bool          `json:"all_led_active" doc:"External override holds the LEDs"`
	EssentialLEDActive bool          `json:"essential_led_active" doc:"Essential LED floor is raised"`
	Charging           ProgressState `json:"charging" doc:"Charging progress bar"`
	Volume             ProgressState `json:"volume" doc:"Volume progress bar"`
}

func (s *State) progress(src Source) *ProgressState {
	if src == SourceVolume {
		return &s.Volume
	}
	return &s.Charging
}

func (s State) clone() State {
	s.Charging = s.Charging.clone()
	s.Volume = s.Volume.clone()
	return s
}

// Registry guards State. Every change closes the current notify channel and
// replaces it, so waiters re-check their condition instead of polling.
type Registry struct {
	mu     sync.Mutex
	state  State
	notify chan struct{}
}

// NewRegistry returns an idle registry.
func NewRegistry() *Registry {
	return &Registry{notify: make(chan struct{})}
}

// Snapshot returns a deep copy of the current state.
func (r *Registry) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

// Update runs fn under the lock. If fn reports a change, waiters are woken.
// The returned channel is closed by the next change after this call.
func (r *Registry) Update(fn func(*State) bool) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn(&r.state) {
		close(r.notify)
		r.notify = make(chan struct{})
	}
	return r.notify
}

// View runs fn under the lock without copying. fn must not retain st.
func (r *Registry) View(fn func(st *State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.state)
}

// Set changes state with fn and always wakes waiters.
func (r *Registry) Set(fn func(*State)) {
	r.Update(func(st *State) bool {
		fn(st)
		return true
	})
}

// WaitFor blocks until pred holds or ctx is done.
func (r *Registry) WaitFor(ctx context.Context, pred func(State) bool) error {
	for {
		var ok bool
		ch := r.Update(func(st *State) bool {
			ok = pred(*st)
			return false
		})
		if ok {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
