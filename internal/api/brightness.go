package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/glyphnode/internal/api/models"
	"github.com/smazurov/glyphnode/internal/events"
	"github.com/smazurov/glyphnode/internal/metrics"
)

// registerBrightnessRoutes registers the brightness ceiling endpoints.
func (s *Server) registerBrightnessRoutes() {
	if s.options.Brightness == nil {
		s.logger.Debug("Brightness control not available, skipping brightness routes")
		return
	}
	ceiling := s.options.Brightness

	huma.Register(s.api, huma.Operation{
		OperationID: "get-brightness",
		Method:      http.MethodGet,
		Path:        "/api/brightness",
		Summary:     "Get Brightness",
		Description: "Current brightness ceiling every frame is scaled to",
		Tags:        []string{"brightness"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.BrightnessResponse, error) {
		return &models.BrightnessResponse{
			Body: models.BrightnessData{Level: ceiling.Brightness(), Max: ceiling.Max()},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-brightness",
		Method:      http.MethodPut,
		Path:        "/api/brightness",
		Summary:     "Set Brightness",
		Description: "Change the brightness ceiling. Takes effect on the next frame.",
		Tags:        []string{"brightness"},
		Security:    withAuth(),
		Errors:      []int{400, 401},
	}, func(_ context.Context, input *models.BrightnessRequest) (*models.BrightnessResponse, error) {
		if err := ceiling.Set(input.Body.Level); err != nil {
			return nil, huma.Error400BadRequest("Invalid brightness", err)
		}

		level := ceiling.Brightness()
		metrics.SetBrightness(level)
		s.eventBus.Publish(events.BrightnessChangedEvent{
			Level:     level,
			Timestamp: timestamp(),
		})
		s.logger.Info("Brightness changed", "level", level)

		return &models.BrightnessResponse{
			Body: models.BrightnessData{Level: level, Max: ceiling.Max()},
		}, nil
	})
}
