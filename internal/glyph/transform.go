package glyph

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"

	"github.com/smazurov/glyphnode/internal/metrics"
)

// essentialIndex maps a frame length to the zone of the essential LED in
// that hardware layout.
var essentialIndex = map[int]int{
	5:  1,
	33: 2,
}

// Transformer converts pattern units to device units, raises the essential
// floor and hands the result to the sink.
type Transformer struct {
	sink         Sink
	brightness   BrightnessSource
	resources    Resources
	reg          *Registry
	max          float64
	floorPercent float64
	lastLength   atomic.Int64
}

// Floor returns the essential floor in pattern units.
func (t *Transformer) Floor() float64 {
	return t.max * t.floorPercent / 100
}

// WriteFrame scales pattern and writes it as one frame. pattern is not
// modified.
func (t *Transformer) WriteFrame(pattern []float64) error {
	idx, addressed := essentialIndex[len(pattern)]
	if addressed && !t.essentialActive() {
		addressed = false
	}

	current := float64(t.brightness.Brightness())
	floor := t.Floor()
	out := make([]float64, len(pattern))
	for i, v := range pattern {
		v = t.clamp(v)
		if addressed && i == idx && v < floor {
			v = floor
		}
		out[i] = v * current / t.max
	}

	err := t.sink.WriteFrame(out)
	metrics.RecordWrite(metrics.KindFrame, err)
	if err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	t.lastLength.Store(int64(len(out)))
	return nil
}

// WriteInts writes an integer pattern.
func (t *Transformer) WriteInts(pattern []int) error {
	values := make([]float64, len(pattern))
	for i, v := range pattern {
		values[i] = float64(v)
	}
	return t.WriteFrame(values)
}

// WriteFields parses textual fields and writes them. Nothing is written when
// any field fails to parse.
func (t *Transformer) WriteFields(fields []string) error {
	values := make([]float64, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: field %d %q", ErrMalformedFrame, i, f)
		}
		values[i] = float64(n)
	}
	return t.WriteFrame(values)
}

// WriteSingle scales brightness and writes one zone.
func (t *Transformer) WriteSingle(led int, brightness float64) error {
	v := t.clamp(brightness)
	if t.essentialActive() && v < t.Floor() {
		if essential, err := t.resources.Integer(KeyEssentialLED); err == nil && essential == led {
			v = t.Floor()
		}
	}

	err := t.sink.WriteSingle(led, v*float64(t.brightness.Brightness())/t.max)
	metrics.RecordWrite(metrics.KindSingle, err)
	if err != nil {
		return fmt.Errorf("write led %d: %w", led, err)
	}
	return nil
}

// Clear writes an all-zero frame of the last written length.
func (t *Transformer) Clear(fallback int) error {
	n := int(t.lastLength.Load())
	if n == 0 {
		n = fallback
	}
	return t.WriteFrame(make([]float64, n))
}

func (t *Transformer) essentialActive() bool {
	var active bool
	t.reg.View(func(st *State) { active = st.EssentialLEDActive })
	return active
}

func (t *Transformer) clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > t.max:
		return t.max
	default:
		return v
	}
}
