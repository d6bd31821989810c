package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/glyphnode/internal/events"
	"github.com/smazurov/glyphnode/internal/logging"
)

// LogStreamInput narrows the log stream.
type LogStreamInput struct {
	Module string `query:"module" doc:"Only entries logged by this module"`
	Level  string `query:"level" enum:"debug,info,warn,error" doc:"Minimum level to stream"`
	Tail   int    `query:"tail" minimum:"0" doc:"Replay at most this many buffered entries, 0 replays all"`
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

type logFilter struct {
	module   string
	minLevel int
}

func newLogFilter(input *LogStreamInput) logFilter {
	return logFilter{module: input.Module, minLevel: levelRank[input.Level]}
}

func (f logFilter) match(module, level string) bool {
	if f.module != "" && f.module != module {
		return false
	}
	return levelRank[level] >= f.minLevel
}

func logEvent(entry logging.LogEntry) events.LogEntryEvent {
	return events.LogEntryEvent{
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		Level:      entry.Level,
		Module:     entry.Module,
		Message:    entry.Message,
		Attributes: entry.Attributes,
	}
}

// registerLogRoutes registers the log streaming SSE endpoint.
func (s *Server) registerLogRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Replays buffered log entries, then streams new ones. Filter by module and minimum level.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, input *LogStreamInput, send sse.Sender) {
		filter := newLogFilter(input)

		// Subscribe first so entries logged during the replay are not lost
		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
		defer unsubscribe()

		if buffer := logging.GetBuffer(); buffer != nil {
			for _, entry := range buffer.Tail(input.Tail) {
				if !filter.match(entry.Module, entry.Level) {
					continue
				}
				if err := send.Data(logEvent(entry)); err != nil {
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				entry, ok := event.(events.LogEntryEvent)
				if !ok || !filter.match(entry.Module, entry.Level) {
					continue
				}
				if err := send.Data(entry); err != nil {
					return
				}
			}
		}
	})
}
