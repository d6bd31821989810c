package exporters

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/smazurov/glyphnode/internal/events"
	"github.com/smazurov/glyphnode/internal/metrics"
)

// DefaultStatsInterval is how often source counters are checked.
const DefaultStatsInterval = time.Second

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter publishes per-source playback counters to the event bus.
// A source is published only when its counters moved since the last tick.
type SSEExporter struct {
	eventBus EventPublisher
	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu   sync.Mutex
	last map[string]metrics.SourceStats
}

// NewSSEExporter creates an exporter ticking every interval, or every
// DefaultStatsInterval when interval is not positive.
func NewSSEExporter(eventBus EventPublisher, interval time.Duration) *SSEExporter {
	if interval <= 0 {
		interval = DefaultStatsInterval
	}
	return &SSEExporter{
		eventBus: eventBus,
		interval: interval,
		last:     make(map[string]metrics.SourceStats),
	}
}

// Start begins the export loop.
func (s *SSEExporter) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop ends the export loop and waits for it. Safe to call more than once.
func (s *SSEExporter) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *SSEExporter) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishChanged()
		}
	}
}

func (s *SSEExporter) publishChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for source, st := range metrics.GetAllSourceStats() {
		if prev, ok := s.last[source]; ok && prev == *st {
			continue
		}
		s.last[source] = *st
		s.eventBus.Publish(StatsEvent(source, st))
	}
}

// StatsEvent converts cached counters to their event form.
func StatsEvent(source string, st *metrics.SourceStats) events.SourceStatsEvent {
	return events.SourceStatsEvent{
		Source:      source,
		Runs:        strconv.Itoa(st.Runs),
		Frames:      strconv.Itoa(st.Frames),
		Denied:      strconv.Itoa(st.Denied),
		LastOutcome: st.LastOutcome,
	}
}

// EventTypes returns the SSE event names this exporter produces.
func EventTypes() map[string]any {
	return map[string]any{
		"source-stats": events.SourceStatsEvent{},
	}
}
