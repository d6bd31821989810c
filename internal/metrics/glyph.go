// Package metrics provides Prometheus metrics for glyph playback.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "glyphnode"

var (
	framesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sink",
		Name:      "writes_total",
		Help:      "Writes handed to the LED sink",
	}, []string{"kind"})

	sinkErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sink",
		Name:      "errors_total",
		Help:      "Failed LED sink writes",
	}, []string{"kind"})

	animations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "playback",
		Name:      "animations_total",
		Help:      "Finished playbacks by outcome",
	}, []string{"source", "outcome"})

	admissionDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "playback",
		Name:      "admission_denied_total",
		Help:      "Requests refused by the admission gate",
	}, []string{"source", "reason"})

	playbackDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "playback",
		Name:      "duration_seconds",
		Help:      "Wall time of admitted playbacks",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"source"})

	brightness = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "brightness_ceiling",
		Help:      "Current brightness ceiling in device units",
	})

	progressLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "progress",
		Name:      "last_index",
		Help:      "Highest lit index of a progress bar",
	}, []string{"source"})

	batteryCapacity = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "power",
		Name:      "battery_capacity_percent",
		Help:      "Battery capacity reported by the power supply",
	})

	batteryCharging = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "power",
		Name:      "charging",
		Help:      "1 while the battery is charging",
	})

	// Local cache for SSE exporter access.
	statsCache   = make(map[string]*SourceStats)
	statsCacheMu sync.RWMutex
)

// Sink write kinds.
const (
	KindFrame  = "frame"
	KindSingle = "single"
)

// SourceStats holds running counters for one playback source.
type SourceStats struct {
	Runs        int
	Frames      int
	Denied      int
	LastOutcome string
}

// RecordWrite counts one sink write of kind.
func RecordWrite(kind string, err error) {
	if err != nil {
		sinkErrors.WithLabelValues(kind).Inc()
		return
	}
	framesWritten.WithLabelValues(kind).Inc()
}

// RecordPlayback counts a finished playback.
func RecordPlayback(source, outcome string, frames int, seconds float64) {
	animations.WithLabelValues(source, outcome).Inc()
	playbackDuration.WithLabelValues(source).Observe(seconds)
	updateCache(source, func(s *SourceStats) {
		s.Runs++
		s.Frames += frames
		s.LastOutcome = outcome
	})
}

// RecordDenied counts a refused request.
func RecordDenied(source, reason string) {
	admissionDenied.WithLabelValues(source, reason).Inc()
	updateCache(source, func(s *SourceStats) { s.Denied++ })
}

// SetBrightness sets the brightness ceiling gauge.
func SetBrightness(level int) {
	brightness.Set(float64(level))
}

// SetProgressLast sets the highest lit index of a progress bar.
func SetProgressLast(source string, last int) {
	progressLevel.WithLabelValues(source).Set(float64(last))
}

// SetBattery records the power supply state.
func SetBattery(capacity int, charging bool) {
	batteryCapacity.Set(float64(capacity))
	if charging {
		batteryCharging.Set(1)
	} else {
		batteryCharging.Set(0)
	}
}

// GetAllSourceStats returns counters for every source seen so far.
func GetAllSourceStats() map[string]*SourceStats {
	statsCacheMu.RLock()
	defer statsCacheMu.RUnlock()
	result := make(map[string]*SourceStats, len(statsCache))
	for source, s := range statsCache {
		dup := *s
		result[source] = &dup
	}
	return result
}

// GetSourceStats returns counters for source, or nil.
func GetSourceStats(source string) *SourceStats {
	statsCacheMu.RLock()
	defer statsCacheMu.RUnlock()
	if s, ok := statsCache[source]; ok {
		dup := *s
		return &dup
	}
	return nil
}

// ResetSourceStats drops the cached counters of source.
func ResetSourceStats(source string) {
	statsCacheMu.Lock()
	delete(statsCache, source)
	statsCacheMu.Unlock()
}

func updateCache(source string, update func(*SourceStats)) {
	statsCacheMu.Lock()
	defer statsCacheMu.Unlock()
	s, ok := statsCache[source]
	if !ok {
		s = &SourceStats{}
		statsCache[source] = s
	}
	update(s)
}
