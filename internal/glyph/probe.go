package glyph

// Probe is sampled before every frame to abort in-flight playback.
type Probe struct {
	reg *Registry
}

// ShouldInterrupt reports whether playback from src must stop: the override
// is active, a call has been requested (for non-call sources), or the call
// has been stopped (for the call source).
func (p Probe) ShouldInterrupt(src Source) bool {
	var stop bool
	p.reg.View(func(st *State) {
		stop = interrupts(st, src)
	})
	return stop
}

func interrupts(st *State, src Source) bool {
	if st.AllLEDActive {
		return true
	}
	if src == SourceCall {
		return !st.CallLEDEnabled
	}
	return st.CallLEDEnabled
}
