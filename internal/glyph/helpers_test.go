package glyph

import (
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

type singleWrite struct {
	index int
	value float64
}

// recordingSink keeps every write in order.
type recordingSink struct {
	mu      sync.Mutex
	frames  [][]float64
	singles []singleWrite
	err     error
	onFrame func(n int)
}

func (s *recordingSink) WriteFrame(values []float64) error {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return s.err
	}
	s.frames = append(s.frames, slices.Clone(values))
	n := len(s.frames)
	hook := s.onFrame
	s.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return nil
}

func (s *recordingSink) WriteSingle(index int, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.singles = append(s.singles, singleWrite{index: index, value: value})
	return nil
}

func (s *recordingSink) Frames() [][]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]float64, len(s.frames))
	copy(out, s.frames)
	return out
}

func (s *recordingSink) Singles() []singleWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.singles)
}

func (s *recordingSink) setHook(fn func(n int)) {
	s.mu.Lock()
	s.onFrame = fn
	s.mu.Unlock()
}

var errNoResource = errors.New("no such resource")

type fakeResources struct {
	animations map[string]string
	calls      map[string]string
	ints       map[string]int
	bools      map[string]bool
	lengths    []int
}

func newFakeResources() *fakeResources {
	return &fakeResources{
		animations: map[string]string{},
		calls:      map[string]string{},
		ints: map[string]int{
			KeyBatteryLevels: 8,
			KeyVolumeLevels:  5,
			KeyEssentialLED:  1,
		},
		bools:   map[string]bool{},
		lengths: []int{5, 33},
	}
}

func (f *fakeResources) Animation(name string) (io.ReadCloser, error) {
	data, ok := f.animations[name]
	if !ok {
		return nil, errNoResource
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func (f *fakeResources) CallAnimation(name string) (io.ReadCloser, error) {
	data, ok := f.calls[name]
	if !ok {
		return nil, errNoResource
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func (f *fakeResources) Integer(key string) (int, error) {
	v, ok := f.ints[key]
	if !ok {
		return 0, errNoResource
	}
	return v, nil
}

func (f *fakeResources) Boolean(key string) (bool, error) {
	v, ok := f.bools[key]
	if !ok {
		return false, errNoResource
	}
	return v, nil
}

func (f *fakeResources) SupportedPatternLengths() []int {
	return f.lengths
}

type fixedBrightness int

func (b fixedBrightness) Brightness() int { return int(b) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastTiming() Timing {
	return Timing{
		Frame:        time.Millisecond,
		ProgressStep: time.Millisecond,
		MusicHold:    time.Millisecond,
		Admission:    300 * time.Millisecond,
	}
}

// newTestEngine builds an engine with pattern max 100 and brightness 100,
// so device units equal pattern units unless a test says otherwise.
func newTestEngine(t *testing.T, res *fakeResources, mutate ...func(*Options)) (*Engine, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	opts := Options{
		Sink:                 sink,
		Resources:            res,
		Brightness:           fixedBrightness(100),
		Logger:               quietLogger(),
		Timing:               fastTiming(),
		MaxPatternBrightness: 100,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	e, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e, sink
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func repeatLines(line string, n int) string {
	var b strings.Builder
	for range n {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
