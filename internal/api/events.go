package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/glyphnode/internal/events"
)

// eventTypes maps SSE event names to the payloads sent on /api/events.
func eventTypes() map[string]any {
	return map[string]any{
		"animation-started":  events.AnimationStartedEvent{},
		"animation-finished": events.AnimationFinishedEvent{},
		"admission-denied":   events.AdmissionDeniedEvent{},
		"override-changed":   events.OverrideChangedEvent{},
		"brightness-changed": events.BrightnessChangedEvent{},
	}
}

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time playback lifecycle, admission, override and brightness events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, eventTypes(), func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.AnimationStartedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.AnimationFinishedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.AdmissionDeniedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.OverrideChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.BrightnessChangedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// The current override state doubles as the connection greeting
		if s.glyph != nil {
			st := s.glyph.Status()
			if err := send.Data(events.OverrideChangedEvent{
				Active:    st.AllLEDActive,
				Timestamp: timestamp(),
			}); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
