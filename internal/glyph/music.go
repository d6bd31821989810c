package glyph

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// musicBands maps a band to its zone on the 5-zone layout.
var musicBands = map[string]int{
	"low":      4,
	"mid_low":  3,
	"mid":      2,
	"mid_high": 0,
	"high":     1,
}

const musicFrameLength = 5

// MusicBands returns the accepted band names.
func MusicBands() []string {
	bands := make([]string, 0, len(musicBands))
	for b := range musicBands {
		bands = append(bands, b)
	}
	slices.Sort(bands)
	return bands
}

// PlayMusic flashes one band zone at full brightness for the hold time.
// Nothing is written while any other animation or bar is shown.
func (e *Engine) PlayMusic(ctx context.Context, band string) (Outcome, error) {
	idx, ok := musicBands[strings.ToLower(band)]
	if !ok {
		return OutcomeFailed, newPlaybackError(ErrCodeInvalidParams, SourceMusic, band, fmt.Errorf("%w: %q", ErrUnknownBand, band))
	}

	gated := false
	e.reg.View(func(st *State) {
		gated = st.AnimationActive || st.Charging.Active || st.Volume.Active ||
			st.CallLEDEnabled || st.AllLEDActive
	})
	if gated {
		e.deny(SourceMusic, band, DenyGated)
		return OutcomeDenied, nil
	}

	r := e.begin(SourceMusic, band)
	frame := make([]float64, musicFrameLength)
	frame[idx] = e.max

	outcome := OutcomeCompleted
	var err error
	if werr := r.frame(frame); werr != nil {
		outcome, err = OutcomeFailed, newPlaybackError(ErrCodeSink, SourceMusic, band, werr)
	} else if e.sleep(ctx, e.timing.MusicHold) != nil {
		outcome = OutcomeInterrupted
	}

	if zeroErr := e.tf.WriteFrame(make([]float64, musicFrameLength)); zeroErr != nil && err == nil {
		outcome, err = OutcomeFailed, newPlaybackError(ErrCodeSink, SourceMusic, band, zeroErr)
	}

	r.finish(outcome, err)
	return outcome, err
}
