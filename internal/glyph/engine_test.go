package glyph

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/glyphnode/internal/events"
)

func TestRunCSVScalesEveryFrame(t *testing.T) {
	res := newFakeResources()
	res.animations["notif"] = "0,10,0,0,0\n0,0,10,0,0\n0,0,0,10,0\n"
	e, sink := newTestEngine(t, res, func(o *Options) { o.Brightness = fixedBrightness(50) })

	outcome, err := e.RunCSV(context.Background(), "notif", false)
	if err != nil || outcome != OutcomeCompleted {
		t.Fatalf("RunCSV() = %s, %v", outcome, err)
	}

	want := [][]float64{
		{0, 5, 0, 0, 0},
		{0, 0, 5, 0, 0},
		{0, 0, 0, 5, 0},
		{0, 0, 0, 0, 0},
	}
	got := sink.Frames()
	if len(got) != len(want) {
		t.Fatalf("frames = %v, want %v", got, want)
	}
	for i := range want {
		if !slices.Equal(got[i], want[i]) {
			t.Errorf("frame %d = %v, want %v", i, got[i], want[i])
		}
	}
	if e.Status().AnimationActive {
		t.Error("animation_active still set")
	}
}

func TestRunCSVWithEssentialFloor(t *testing.T) {
	res := newFakeResources()
	res.animations["notif"] = "0,10,0,0,0\n0,0,10,0,0\n0,0,0,10,0\n"
	e, sink := newTestEngine(t, res, func(o *Options) { o.Brightness = fixedBrightness(50) })
	e.reg.Set(func(st *State) { st.EssentialLEDActive = true })

	if _, err := e.RunCSV(context.Background(), "notif", false); err != nil {
		t.Fatal(err)
	}

	frames := sink.Frames()
	for i, f := range frames[:len(frames)-1] {
		if f[1] < 30 {
			t.Errorf("frame %d essential zone = %v, want >= 30", i, f[1])
		}
	}
}

func TestRunCSVStopsAtUnsupportedLine(t *testing.T) {
	res := newFakeResources()
	res.animations["broken"] = "1,1,1,1,1\n2,2,2,2,2\n3,3,3\n4,4,4,4,4\n"
	e, sink := newTestEngine(t, res)

	outcome, err := e.RunCSV(context.Background(), "broken", false)
	if outcome != OutcomeFailed || !errors.Is(err, ErrUnsupportedLength) {
		t.Fatalf("RunCSV() = %s, %v", outcome, err)
	}

	var perr *PlaybackError
	if !errors.As(err, &perr) || perr.Code != ErrCodeMalformed {
		t.Errorf("error = %v, want %s", err, ErrCodeMalformed)
	}

	frames := sink.Frames()
	if len(frames) != 3 {
		t.Fatalf("frames = %d, want 2 + zero frame", len(frames))
	}
	if !slices.Equal(frames[2], []float64{0, 0, 0, 0, 0}) {
		t.Errorf("last frame = %v, want zero", frames[2])
	}
	if e.Status().AnimationActive {
		t.Error("animation_active still set")
	}
}

func TestRunCSVMissingResource(t *testing.T) {
	e, sink := newTestEngine(t, newFakeResources())

	outcome, err := e.RunCSV(context.Background(), "absent", false)
	if outcome != OutcomeFailed || !errors.Is(err, errNoResource) {
		t.Fatalf("RunCSV() = %s, %v", outcome, err)
	}
	if n := len(sink.Frames()); n != 1 {
		t.Errorf("frames = %d, want only the zero frame", n)
	}
}

func TestRunCSVDeniedWhileBusy(t *testing.T) {
	res := newFakeResources()
	res.animations["notif"] = "1,1,1,1,1\n"
	e, sink := newTestEngine(t, res)
	e.reg.Set(func(st *State) { st.AnimationActive = true })

	outcome, err := e.RunCSV(context.Background(), "notif", false)
	if err != nil || outcome != OutcomeDenied {
		t.Fatalf("RunCSV() = %s, %v", outcome, err)
	}
	if n := len(sink.Frames()); n != 0 {
		t.Errorf("frames = %d, want 0", n)
	}
	if !e.Status().AnimationActive {
		t.Error("denial must not change state")
	}
}

func TestRunCSVSinkFailure(t *testing.T) {
	res := newFakeResources()
	res.animations["notif"] = "1,1,1,1,1\n"
	e, sink := newTestEngine(t, res)
	sink.err = errors.New("i2c nack")

	outcome, err := e.RunCSV(context.Background(), "notif", false)
	if outcome != OutcomeFailed || err == nil {
		t.Fatalf("RunCSV() = %s, %v", outcome, err)
	}
	if e.Status().AnimationActive {
		t.Error("animation_active still set after sink failure")
	}
}

func TestPlayCSVSchedulesAndDeniesWhenBusy(t *testing.T) {
	res := newFakeResources()
	res.animations["long"] = repeatLines("1,1,1,1,1", 200)
	res.animations["short"] = "2,2,2,2,2\n"
	e, sink := newTestEngine(t, res)

	outcome, err := e.PlayCSV("long", false)
	if err != nil || outcome != OutcomeScheduled {
		t.Fatalf("PlayCSV(long) = %s, %v", outcome, err)
	}
	waitUntil(t, "first frame", func() bool { return len(sink.Frames()) > 0 })

	outcome, err = e.PlayCSV("short", false)
	if err != nil || outcome != OutcomeDenied {
		t.Errorf("PlayCSV(short) = %s, %v, want denied", outcome, err)
	}
}

func TestPlayCSVWaitRunsAfterCurrent(t *testing.T) {
	res := newFakeResources()
	res.animations["first"] = repeatLines("1,1,1,1,1", 10)
	res.animations["second"] = "2,2,2,2,2\n"
	e, sink := newTestEngine(t, res)

	if _, err := e.PlayCSV("first", false); err != nil {
		t.Fatal(err)
	}
	if outcome, _ := e.PlayCSV("second", true); outcome != OutcomeScheduled {
		t.Fatalf("PlayCSV(second) = %s, want scheduled", outcome)
	}

	waitUntil(t, "second animation", func() bool {
		for _, f := range sink.Frames() {
			if f[0] == 2 {
				return true
			}
		}
		return false
	})
	waitUntil(t, "idle", func() bool { return !e.Status().AnimationActive && !e.sched.Busy() })

	frames := sink.Frames()
	if len(frames) != 10+1+1+1 {
		t.Errorf("frames = %d, want 13", len(frames))
	}
}

func TestChargingFromIdle(t *testing.T) {
	e, sink := newTestEngine(t, newFakeResources())

	outcome, err := e.PlayCharging(context.Background(), 50, false)
	if err != nil || outcome != OutcomeCompleted {
		t.Fatalf("PlayCharging() = %s, %v", outcome, err)
	}

	frames := sink.Frames()
	if len(frames) != 4 {
		t.Fatalf("frames = %d, want 4", len(frames))
	}
	for i, f := range frames {
		for j, v := range f {
			lit := v == 100
			if lit != (j <= i) {
				t.Errorf("frame %d zone %d = %v", i, j, v)
			}
		}
	}

	st := e.Status()
	if st.Charging.Last != 3 {
		t.Errorf("charging last = %d, want 3", st.Charging.Last)
	}
	if !st.Charging.Active {
		t.Error("charging bar should stay shown")
	}
	if st.AnimationActive {
		t.Error("animation_active still set")
	}
}

func TestProgressTransitions(t *testing.T) {
	e, sink := newTestEngine(t, newFakeResources())
	const n = 8

	steps := []struct {
		level      int
		wantFrames int
		wantLast   int
	}{
		{50, 4, 3},
		{100, 4, 7},
		{25, 6, 1},
		{25, 0, 1},
		{75, 4, 5},
		{0, 6, 0},
	}

	for _, step := range steps {
		before := len(sink.Frames())
		if _, err := e.PlayCharging(context.Background(), step.level, false); err != nil {
			t.Fatalf("PlayCharging(%d) error = %v", step.level, err)
		}
		got := len(sink.Frames()) - before
		if got != step.wantFrames {
			t.Errorf("level %d: frames = %d, want %d", step.level, got, step.wantFrames)
		}
		st := e.Status().Charging
		if st.Last != step.wantLast {
			t.Errorf("level %d: last = %d, want %d", step.level, st.Last, step.wantLast)
		}
		if next := ProgressTarget(SourceCharging, step.level, n); next >= 0 && st.Levels[next] == 0 {
			t.Errorf("level %d: zone %d not lit", step.level, next)
		}
		for i := ProgressTarget(SourceCharging, step.level, n) + 1; i < n; i++ {
			if st.Levels[i] != 0 {
				t.Errorf("level %d: zone %d still lit", step.level, i)
			}
		}
	}
}

func TestProgressTarget(t *testing.T) {
	tests := []struct {
		src   Source
		level int
		n     int
		want  int
	}{
		{SourceCharging, 50, 8, 3},
		{SourceCharging, 0, 8, -1},
		{SourceCharging, 100, 8, 7},
		{SourceCharging, 99, 8, 6},
		{SourceCharging, 150, 8, 7},
		{SourceCharging, -20, 8, -1},
		{SourceVolume, 50, 5, 2},
		{SourceVolume, 30, 5, 1},
		{SourceVolume, 100, 5, 4},
		{SourceVolume, 0, 5, -1},
	}
	for _, tt := range tests {
		if got := ProgressTarget(tt.src, tt.level, tt.n); got != tt.want {
			t.Errorf("ProgressTarget(%s, %d, %d) = %d, want %d", tt.src, tt.level, tt.n, got, tt.want)
		}
	}
}

func TestVolumeUsesRounding(t *testing.T) {
	e, _ := newTestEngine(t, newFakeResources())

	if _, err := e.PlayVolume(context.Background(), 50, false); err != nil {
		t.Fatal(err)
	}
	if last := e.Status().Volume.Last; last != 2 {
		t.Errorf("volume last = %d, want 2", last)
	}
}

func TestChargingThenDismissClearsBar(t *testing.T) {
	e, sink := newTestEngine(t, newFakeResources())

	if _, err := e.PlayCharging(context.Background(), 75, false); err != nil {
		t.Fatal(err)
	}
	before := len(sink.Frames())

	outcome, err := e.DismissCharging(context.Background())
	if err != nil || outcome != OutcomeCompleted {
		t.Fatalf("DismissCharging() = %s, %v", outcome, err)
	}

	st := e.Status().Charging
	for i, v := range st.Levels {
		if v != 0 {
			t.Errorf("zone %d = %d after dismiss", i, v)
		}
	}
	if st.Last != 0 || st.Active {
		t.Errorf("charging state = %+v, want last 0 inactive", st)
	}
	if got := len(sink.Frames()) - before; got != 6 {
		t.Errorf("dismiss frames = %d, want one per lit zone (6)", got)
	}
	if last := sink.Frames()[len(sink.Frames())-1]; slices.ContainsFunc(last, func(v float64) bool { return v != 0 }) {
		t.Errorf("last frame = %v, want all zero", last)
	}
}

func TestDismissEmptyBarIsSkipped(t *testing.T) {
	e, sink := newTestEngine(t, newFakeResources())
	e.reg.Set(func(st *State) {
		st.Volume.reset(5)
		st.Volume.Active = true
		st.Volume.Last = 2
	})

	outcome, err := e.DismissVolume(context.Background())
	if err != nil || outcome != OutcomeSkipped {
		t.Fatalf("DismissVolume() = %s, %v", outcome, err)
	}
	if len(sink.Frames()) != 0 {
		t.Error("skipped dismiss wrote frames")
	}
	if st := e.Status().Volume; st.Active || st.Last != 0 {
		t.Errorf("volume state = %+v, want cleared", st)
	}
}

func TestDismissDeniedWhileBusy(t *testing.T) {
	e, _ := newTestEngine(t, newFakeResources())
	if _, err := e.PlayCharging(context.Background(), 50, false); err != nil {
		t.Fatal(err)
	}
	e.reg.Set(func(st *State) { st.AnimationActive = true })

	outcome, err := e.DismissCharging(context.Background())
	if err != nil || outcome != OutcomeDenied {
		t.Fatalf("DismissCharging() = %s, %v", outcome, err)
	}
	if !e.Status().Charging.lit() {
		t.Error("denied dismiss cleared the cache")
	}
}

func TestProgressInterruptedByCallResetsCache(t *testing.T) {
	e, sink := newTestEngine(t, newFakeResources())
	sink.setHook(func(n int) {
		if n == 2 {
			e.reg.Set(func(st *State) { st.CallLEDEnabled = true })
		}
	})

	outcome, err := e.PlayCharging(context.Background(), 100, false)
	if err != nil || outcome != OutcomeInterrupted {
		t.Fatalf("PlayCharging() = %s, %v", outcome, err)
	}

	st := e.Status()
	if st.Charging.lit() || st.Charging.Last != 0 || st.Charging.Active {
		t.Errorf("charging state = %+v, want reset", st.Charging)
	}
	frames := sink.Frames()
	if last := frames[len(frames)-1]; slices.ContainsFunc(last, func(v float64) bool { return v != 0 }) {
		t.Errorf("last frame = %v, want zero", last)
	}
	if st.AnimationActive {
		t.Error("animation_active still set")
	}
}

func TestProgressInterruptedByOverrideKeepsCache(t *testing.T) {
	e, sink := newTestEngine(t, newFakeResources())
	sink.setHook(func(n int) {
		if n == 2 {
			e.reg.Set(func(st *State) { st.AllLEDActive = true })
		}
	})

	outcome, _ := e.PlayCharging(context.Background(), 100, false)
	if outcome != OutcomeInterrupted {
		t.Fatalf("PlayCharging() = %s, want interrupted", outcome)
	}

	st := e.Status()
	if st.Charging.Last != 1 || st.Charging.Levels[1] == 0 {
		t.Errorf("charging state = %+v, want partial bar kept", st.Charging)
	}
	if n := len(sink.Frames()); n != 2 {
		t.Errorf("frames = %d, want 2 and no zero frame", n)
	}
}

func TestProgressResetsWhenLevelCountChanges(t *testing.T) {
	res := newFakeResources()
	e, _ := newTestEngine(t, res)

	if _, err := e.PlayCharging(context.Background(), 100, false); err != nil {
		t.Fatal(err)
	}
	res.ints[KeyBatteryLevels] = 4
	if _, err := e.PlayCharging(context.Background(), 50, false); err != nil {
		t.Fatal(err)
	}

	st := e.Status().Charging
	if len(st.Levels) != 4 || st.Last != 1 {
		t.Errorf("charging state = %+v, want 4 zones last 1", st)
	}
}

func TestProgressMissingLevelCount(t *testing.T) {
	res := newFakeResources()
	delete(res.ints, KeyVolumeLevels)
	e, _ := newTestEngine(t, res)

	outcome, err := e.PlayVolume(context.Background(), 50, false)
	var perr *PlaybackError
	if outcome != OutcomeFailed || !errors.As(err, &perr) || perr.Code != ErrCodeConfig {
		t.Errorf("PlayVolume() = %s, %v", outcome, err)
	}
}

func TestAutoDismiss(t *testing.T) {
	e, _ := newTestEngine(t, newFakeResources(), func(o *Options) {
		o.AutoDismiss = AutoDismiss{Volume: 20 * time.Millisecond}
	})

	if _, err := e.PlayVolume(context.Background(), 100, false); err != nil {
		t.Fatal(err)
	}
	if !e.Status().Volume.Active {
		t.Fatal("volume bar should be shown")
	}

	waitUntil(t, "auto dismiss", func() bool {
		st := e.Status().Volume
		return !st.Active && !st.lit()
	})
}

func TestAutoDismissRestartedByNewPlay(t *testing.T) {
	e, _ := newTestEngine(t, newFakeResources(), func(o *Options) {
		o.AutoDismiss = AutoDismiss{Charging: 80 * time.Millisecond}
	})

	if _, err := e.PlayCharging(context.Background(), 100, false); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := e.PlayCharging(context.Background(), 100, false); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	if !e.Status().Charging.lit() {
		t.Error("first auto dismiss fired after a newer play")
	}
	waitUntil(t, "rescheduled dismiss", func() bool { return !e.Status().Charging.lit() })
}

func TestCallPreemptsCSVAndStops(t *testing.T) {
	res := newFakeResources()
	res.animations["long"] = repeatLines("1,1,1,1,1", 500)
	res.calls["ring"] = "0,0,0,0,77\n0,0,0,77,0\n"

	bus := events.New()
	finished := make(chan events.AnimationFinishedEvent, 16)
	defer bus.Subscribe(func(ev events.AnimationFinishedEvent) { finished <- ev })()

	e, sink := newTestEngine(t, res, func(o *Options) { o.EventBus = bus })

	if _, err := e.PlayCSV("long", false); err != nil {
		t.Fatal(err)
	}
	waitUntil(t, "csv frames", func() bool { return len(sink.Frames()) > 2 })

	outcome, err := e.PlayCall(context.Background(), "ring")
	if err != nil || outcome != OutcomeStarted {
		t.Fatalf("PlayCall() = %s, %v", outcome, err)
	}

	select {
	case ev := <-finished:
		if ev.Source != "csv" || ev.Outcome != string(OutcomeInterrupted) {
			t.Errorf("finished event = %+v, want interrupted csv", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no finished event for csv")
	}

	waitUntil(t, "call frames", func() bool {
		return slices.ContainsFunc(sink.Frames(), func(f []float64) bool { return slices.Contains(f, 77) })
	})
	st := e.Status()
	if !st.CallLEDActive || !st.CallLEDEnabled {
		t.Fatalf("call state = %+v", st)
	}

	outcome, err = e.StopCall(context.Background())
	if err != nil || outcome != OutcomeCompleted {
		t.Fatalf("StopCall() = %s, %v", outcome, err)
	}
	if e.Status().CallLEDActive {
		t.Error("call_led_active still set after StopCall")
	}

	count := len(sink.Frames())
	time.Sleep(20 * time.Millisecond)
	frames := sink.Frames()
	if len(frames) != count {
		t.Errorf("frames written after StopCall: %d", len(frames)-count)
	}
	if last := frames[len(frames)-1]; slices.ContainsFunc(last, func(v float64) bool { return v != 0 }) {
		t.Errorf("last frame = %v, want zero", last)
	}
}

func TestCallBlocksOtherSources(t *testing.T) {
	res := newFakeResources()
	res.calls["ring"] = "0,0,0,0,77\n"
	res.animations["notif"] = "1,1,1,1,1\n"
	e, _ := newTestEngine(t, res)

	if _, err := e.PlayCall(context.Background(), "ring"); err != nil {
		t.Fatal(err)
	}
	defer e.StopCall(context.Background())

	if outcome, _ := e.RunCSV(context.Background(), "notif", true); outcome != OutcomeDenied {
		t.Errorf("RunCSV during call = %s, want denied", outcome)
	}
	if outcome, _ := e.PlayCharging(context.Background(), 50, true); outcome != OutcomeDenied {
		t.Errorf("PlayCharging during call = %s, want denied", outcome)
	}
	if outcome, _ := e.PlayMusic(context.Background(), "low"); outcome != OutcomeDenied {
		t.Errorf("PlayMusic during call = %s, want denied", outcome)
	}
	if outcome, _ := e.PlayCall(context.Background(), "ring"); outcome != OutcomeDenied {
		t.Errorf("second PlayCall = %s, want denied", outcome)
	}
}

func TestCallPausesDuringOverride(t *testing.T) {
	res := newFakeResources()
	res.calls["ring"] = "0,0,0,0,77\n"
	e, sink := newTestEngine(t, res)

	if _, err := e.PlayCall(context.Background(), "ring"); err != nil {
		t.Fatal(err)
	}
	defer e.StopCall(context.Background())
	waitUntil(t, "call frames", func() bool { return len(sink.Frames()) > 0 })

	e.SetOverride(true)
	time.Sleep(10 * time.Millisecond)
	paused := len(sink.Frames())
	time.Sleep(20 * time.Millisecond)
	if got := len(sink.Frames()); got != paused {
		t.Errorf("call wrote %d frames during override", got-paused)
	}

	e.SetOverride(false)
	waitUntil(t, "call resumes", func() bool { return len(sink.Frames()) > paused })
}

func TestStopCallWithoutCall(t *testing.T) {
	e, sink := newTestEngine(t, newFakeResources())

	outcome, err := e.StopCall(context.Background())
	if err != nil || outcome != OutcomeSkipped {
		t.Fatalf("StopCall() = %s, %v", outcome, err)
	}
	if n := len(sink.Frames()); n != 1 {
		t.Errorf("frames = %d, want one zero frame", n)
	}
}

func TestEssentialRampThenReassert(t *testing.T) {
	e, sink := newTestEngine(t, newFakeResources())

	outcome, err := e.PlayEssential(context.Background())
	if err != nil || outcome != OutcomeScheduled {
		t.Fatalf("PlayEssential() = %s, %v", outcome, err)
	}
	waitUntil(t, "essential flag", func() bool { return e.Status().EssentialLEDActive })
	waitUntil(t, "animation released", func() bool { return !e.Status().AnimationActive })

	want := []singleWrite{{1, 12}, {1, 24}, {1, 36}, {1, 48}, {1, 60}}
	if got := sink.Singles(); !slices.Equal(got, want) {
		t.Fatalf("ramp = %v, want %v", got, want)
	}

	outcome, err = e.PlayEssential(context.Background())
	if err != nil || outcome != OutcomeCompleted {
		t.Fatalf("second PlayEssential() = %s, %v", outcome, err)
	}
	singles := sink.Singles()
	if len(singles) != 6 || singles[5] != (singleWrite{1, 60}) {
		t.Errorf("singles = %v, want one floor re-assert", singles)
	}
}

func TestStopEssential(t *testing.T) {
	e, sink := newTestEngine(t, newFakeResources())
	e.reg.Set(func(st *State) { st.EssentialLEDActive = true })

	outcome, err := e.StopEssential(context.Background())
	if err != nil || outcome != OutcomeCompleted {
		t.Fatalf("StopEssential() = %s, %v", outcome, err)
	}
	if got := sink.Singles(); !slices.Equal(got, []singleWrite{{1, 0}}) {
		t.Errorf("singles = %v, want LED switched off", got)
	}

	e.reg.Set(func(st *State) {
		st.EssentialLEDActive = true
		st.AnimationActive = true
	})
	outcome, _ = e.StopEssential(context.Background())
	if outcome != OutcomeSkipped {
		t.Errorf("StopEssential() while busy = %s, want skipped", outcome)
	}
	if e.Status().EssentialLEDActive {
		t.Error("essential flag not cleared")
	}
	if n := len(sink.Singles()); n != 1 {
		t.Errorf("singles = %d, want no write while busy", n)
	}
}

func TestMusicFlash(t *testing.T) {
	e, sink := newTestEngine(t, newFakeResources())

	outcome, err := e.PlayMusic(context.Background(), "low")
	if err != nil || outcome != OutcomeCompleted {
		t.Fatalf("PlayMusic() = %s, %v", outcome, err)
	}
	want := [][]float64{{0, 0, 0, 0, 100}, {0, 0, 0, 0, 0}}
	frames := sink.Frames()
	if len(frames) != 2 || !slices.Equal(frames[0], want[0]) || !slices.Equal(frames[1], want[1]) {
		t.Errorf("frames = %v, want %v", frames, want)
	}
}

func TestMusicBandMap(t *testing.T) {
	bands := map[string]int{"low": 4, "mid_low": 3, "mid": 2, "mid_high": 0, "high": 1}
	for band, idx := range bands {
		e, sink := newTestEngine(t, newFakeResources())
		if _, err := e.PlayMusic(context.Background(), band); err != nil {
			t.Fatalf("PlayMusic(%s) error = %v", band, err)
		}
		if got := sink.Frames()[0][idx]; got != 100 {
			t.Errorf("band %s zone %d = %v, want 100", band, idx, got)
		}
	}
	if len(MusicBands()) != len(bands) {
		t.Errorf("MusicBands() = %v", MusicBands())
	}
}

func TestMusicGated(t *testing.T) {
	gates := []func(*State){
		func(st *State) { st.AnimationActive = true },
		func(st *State) { st.Charging.Active = true },
		func(st *State) { st.Volume.Active = true },
		func(st *State) { st.CallLEDEnabled = true },
		func(st *State) { st.AllLEDActive = true },
	}
	for i, gate := range gates {
		e, sink := newTestEngine(t, newFakeResources())
		e.reg.Set(gate)

		outcome, err := e.PlayMusic(context.Background(), "low")
		if err != nil || outcome != OutcomeDenied {
			t.Errorf("gate %d: PlayMusic() = %s, %v", i, outcome, err)
		}
		if n := len(sink.Frames()); n != 0 {
			t.Errorf("gate %d: frames = %d, want 0", i, n)
		}
	}
}

func TestMusicUnknownBand(t *testing.T) {
	e, _ := newTestEngine(t, newFakeResources())
	if _, err := e.PlayMusic(context.Background(), "sub"); !errors.Is(err, ErrUnknownBand) {
		t.Errorf("error = %v, want ErrUnknownBand", err)
	}
}

func TestSetOverridePublishesOnChange(t *testing.T) {
	bus := events.New()
	changes := make(chan events.OverrideChangedEvent, 4)
	defer bus.Subscribe(func(ev events.OverrideChangedEvent) { changes <- ev })()

	e, _ := newTestEngine(t, newFakeResources(), func(o *Options) { o.EventBus = bus })
	e.SetOverride(true)
	e.SetOverride(true)

	select {
	case ev := <-changes:
		if !ev.Active {
			t.Error("expected active override event")
		}
	case <-time.After(time.Second):
		t.Fatal("no override event")
	}
	select {
	case ev := <-changes:
		t.Errorf("unexpected second event %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
	if !e.Status().AllLEDActive {
		t.Error("override not set")
	}
}

func TestDeniedEventPublished(t *testing.T) {
	bus := events.New()
	denied := make(chan events.AdmissionDeniedEvent, 4)
	defer bus.Subscribe(func(ev events.AdmissionDeniedEvent) { denied <- ev })()

	res := newFakeResources()
	res.animations["notif"] = "1,1,1,1,1\n"
	e, _ := newTestEngine(t, res, func(o *Options) { o.EventBus = bus })
	e.SetOverride(true)

	if outcome, _ := e.RunCSV(context.Background(), "notif", false); outcome != OutcomeDenied {
		t.Fatalf("RunCSV() = %s, want denied", outcome)
	}

	select {
	case ev := <-denied:
		if ev.Source != "csv" || ev.Reason != string(DenyOverride) || ev.Name != "notif" {
			t.Errorf("denied event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no denied event")
	}
}

func TestCloseDeniesNewWork(t *testing.T) {
	e, _ := newTestEngine(t, newFakeResources())
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if _, err := e.PlayCSV("notif", false); !errors.Is(err, ErrClosed) {
		t.Errorf("PlayCSV after Close error = %v, want ErrClosed", err)
	}
	if _, err := e.PlayCall(context.Background(), "ring"); !errors.Is(err, ErrClosed) {
		t.Errorf("PlayCall after Close error = %v, want ErrClosed", err)
	}
}

func TestNewValidatesOptions(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error without collaborators")
	}
	_, err := New(Options{
		Sink:                  &recordingSink{},
		Resources:             newFakeResources(),
		Brightness:            fixedBrightness(1),
		EssentialFloorPercent: 150,
		Logger:                quietLogger(),
	})
	if err == nil {
		t.Error("expected error for floor above 100%")
	}
}

func TestEssentialBackToBackRampsOnce(t *testing.T) {
	e, sink := newTestEngine(t, newFakeResources())

	for i := range 2 {
		outcome, err := e.PlayEssential(context.Background())
		if err != nil || outcome != OutcomeScheduled {
			t.Fatalf("PlayEssential() #%d = %s, %v", i+1, outcome, err)
		}
	}
	waitUntil(t, "re-assert", func() bool { return len(sink.Singles()) >= 6 })
	waitUntil(t, "animation released", func() bool { return !e.Status().AnimationActive })
	time.Sleep(20 * time.Millisecond)

	want := []singleWrite{{1, 12}, {1, 24}, {1, 36}, {1, 48}, {1, 60}, {1, 60}}
	if got := sink.Singles(); !slices.Equal(got, want) {
		t.Errorf("singles = %v, want one ramp and one re-assert %v", got, want)
	}
	if !e.Status().EssentialLEDActive {
		t.Error("essential flag not set")
	}
}

// countingResources counts call animation opens.
type countingResources struct {
	*fakeResources
	opens atomic.Int64
}

func (c *countingResources) CallAnimation(name string) (io.ReadCloser, error) {
	c.opens.Add(1)
	return c.fakeResources.CallAnimation(name)
}

func TestCallEmptyAnimationYields(t *testing.T) {
	res := &countingResources{fakeResources: newFakeResources()}
	res.calls["ring"] = ""
	e, _ := newTestEngine(t, res.fakeResources, func(o *Options) { o.Resources = res })

	outcome, err := e.PlayCall(context.Background(), "ring")
	if err != nil || outcome != OutcomeStarted {
		t.Fatalf("PlayCall() = %s, %v", outcome, err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := e.StopCall(context.Background()); err != nil {
		t.Fatal(err)
	}

	// One frame period is 1ms, so 50ms allows about 50 passes.
	if n := res.opens.Load(); n == 0 || n > 200 {
		t.Errorf("call animation opened %d times in 50ms", n)
	}
}

func TestCallStoppedWhileWaitingAtGate(t *testing.T) {
	res := newFakeResources()
	res.calls["ring"] = "0,0,0,0,77\n"
	e, _ := newTestEngine(t, res)
	e.reg.Set(func(st *State) { st.AnimationActive = true })

	done := make(chan Outcome, 1)
	go func() {
		outcome, _ := e.PlayCall(context.Background(), "ring")
		done <- outcome
	}()
	waitUntil(t, "call requested", func() bool { return e.Status().CallLEDEnabled })

	if _, err := e.StopCall(context.Background()); err != nil {
		t.Fatal(err)
	}
	e.reg.Set(func(st *State) { st.AnimationActive = false })

	select {
	case outcome := <-done:
		if outcome != OutcomeDenied {
			t.Errorf("PlayCall() = %s, want denied", outcome)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("PlayCall did not return")
	}

	st := e.Status()
	if st.CallLEDActive || st.CallLEDEnabled {
		t.Errorf("call flags = active %v enabled %v, want both cleared", st.CallLEDActive, st.CallLEDEnabled)
	}
	if e.pool.IsRunning(callTaskID) {
		t.Error("call loop started after StopCall")
	}
}

func TestDotTarget(t *testing.T) {
	tests := []struct {
		level int
		n     int
		want  int
	}{
		{0, 8, -1},
		{1, 8, 1},
		{50, 8, 4},
		{99, 8, 6},
		{100, 8, 7},
		{-5, 8, -1},
	}
	for _, tt := range tests {
		if got := DotTarget(tt.level, tt.n); got != tt.want {
			t.Errorf("DotTarget(%d, %d) = %d, want %d", tt.level, tt.n, got, tt.want)
		}
	}
}

func TestChargingBatteryDot(t *testing.T) {
	res := newFakeResources()
	res.bools[KeyBatteryDot] = true
	e, sink := newTestEngine(t, res)

	outcome, err := e.PlayCharging(context.Background(), 50, false)
	if err != nil || outcome != OutcomeCompleted {
		t.Fatalf("PlayCharging() = %s, %v", outcome, err)
	}

	frames := sink.Frames()
	if len(frames) != 4 {
		t.Fatalf("frames = %d, want 4 with the dot lit alongside the first step", len(frames))
	}
	for i, f := range frames {
		for j, v := range f {
			lit := v == 100
			if lit != (j <= i+1) {
				t.Errorf("frame %d zone %d = %v", i, j, v)
			}
		}
	}
	if last := e.Status().Charging.Last; last != 4 {
		t.Errorf("charging last = %d, want 4", last)
	}

	// Volume never shows a dot.
	if _, err := e.PlayVolume(context.Background(), 100, false); err != nil {
		t.Fatal(err)
	}
	if got := len(sink.Frames()) - 4; got != 5 {
		t.Errorf("volume frames = %d, want 5", got)
	}
}
