package api

import (
	"context"
	"net/http"
	"sort"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/glyphnode/internal/events"
	"github.com/smazurov/glyphnode/internal/metrics"
	"github.com/smazurov/glyphnode/internal/metrics/exporters"
)

// MetricsStreamInput filters the counters stream.
type MetricsStreamInput struct {
	Source string `query:"source" doc:"Only stream counters of this playback kind" example:"csv"`
}

// registerMetricsRoutes registers the per-source playback counters stream.
func (s *Server) registerMetricsRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "metrics-stream",
		Method:      http.MethodGet,
		Path:        "/api/metrics",
		Summary:     "Playback Counters Stream",
		Description: "Current per-source counters on connect, then every source whose counters change",
		Tags:        []string{"metrics"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, exporters.EventTypes(), func(ctx context.Context, input *MetricsStreamInput, send sse.Sender) {
		eventCh := make(chan any, 16)
		unsubscribe := events.SubscribeToChannel[events.SourceStatsEvent](s.eventBus, eventCh)
		defer unsubscribe()

		for _, ev := range statsSnapshot(input.Source) {
			if err := send.Data(ev); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if st, ok := event.(events.SourceStatsEvent); ok && input.Source != "" && st.Source != input.Source {
					continue
				}
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

// statsSnapshot returns the cached counters sorted by source.
func statsSnapshot(source string) []events.SourceStatsEvent {
	all := metrics.GetAllSourceStats()
	out := make([]events.SourceStatsEvent, 0, len(all))
	for name, st := range all {
		if source != "" && name != source {
			continue
		}
		out = append(out, exporters.StatsEvent(name, st))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}
