package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/glyphnode/internal/api/models"
	"github.com/smazurov/glyphnode/internal/glyph"
	"github.com/smazurov/glyphnode/internal/resources"
)

// playbackResponse converts an engine result into an API response.
func playbackResponse(outcome glyph.Outcome, err error) (*models.PlaybackResponse, error) {
	if err != nil {
		return nil, toHTTPError(err)
	}
	return &models.PlaybackResponse{
		Body: models.PlaybackData{Outcome: string(outcome)},
	}, nil
}

// toHTTPError maps engine errors to HTTP status codes.
func toHTTPError(err error) error {
	if errors.Is(err, glyph.ErrClosed) {
		return huma.Error503ServiceUnavailable("Playback engine is shutting down", err)
	}

	var pe *glyph.PlaybackError
	if !errors.As(err, &pe) {
		return huma.Error500InternalServerError("Playback failed", err)
	}

	switch pe.Code {
	case glyph.ErrCodeInvalidParams:
		return huma.Error400BadRequest(pe.Error(), err)
	case glyph.ErrCodeResource:
		if errors.Is(err, resources.ErrNotFound) || errors.Is(err, resources.ErrInvalidName) {
			return huma.Error404NotFound(pe.Error(), err)
		}
		return huma.Error500InternalServerError(pe.Error(), err)
	case glyph.ErrCodeMalformed:
		return huma.Error422UnprocessableEntity(pe.Error(), err)
	case glyph.ErrCodeSink:
		return huma.NewError(http.StatusBadGateway, pe.Error(), err)
	default:
		return huma.Error500InternalServerError(pe.Error(), err)
	}
}

// playbackContext keeps request values but not its cancellation: a client
// that disconnects must not abort a bar mid-step and reset its cache.
func playbackContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// registerPlaybackRoutes registers one endpoint per engine operation.
func (s *Server) registerPlaybackRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "play-animation",
		Method:      http.MethodPost,
		Path:        "/api/animations/{name}/play",
		Summary:     "Play Animation",
		Description: "Schedule a scripted CSV animation. Returns scheduled or denied without waiting for playback.",
		Tags:        []string{"playback"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(_ context.Context, input *models.AnimationPlayRequest) (*models.PlaybackResponse, error) {
		wait := input.Body != nil && input.Body.Wait
		return playbackResponse(s.glyph.PlayCSV(input.Name, wait))
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "play-charging",
		Method:      http.MethodPost,
		Path:        "/api/charging",
		Summary:     "Show Charging Bar",
		Description: "Animate the charging progress bar to the given battery level",
		Tags:        []string{"playback"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 502},
	}, func(ctx context.Context, input *models.ProgressRequest) (*models.PlaybackResponse, error) {
		return playbackResponse(s.glyph.PlayCharging(playbackContext(ctx), input.Body.Level, input.Body.Wait))
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "dismiss-charging",
		Method:      http.MethodDelete,
		Path:        "/api/charging",
		Summary:     "Dismiss Charging Bar",
		Tags:        []string{"playback"},
		Security:    withAuth(),
		Errors:      []int{401, 502},
	}, func(ctx context.Context, _ *struct{}) (*models.PlaybackResponse, error) {
		return playbackResponse(s.glyph.DismissCharging(playbackContext(ctx)))
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "play-volume",
		Method:      http.MethodPost,
		Path:        "/api/volume",
		Summary:     "Show Volume Bar",
		Description: "Animate the volume progress bar to the given level",
		Tags:        []string{"playback"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 502},
	}, func(ctx context.Context, input *models.ProgressRequest) (*models.PlaybackResponse, error) {
		return playbackResponse(s.glyph.PlayVolume(playbackContext(ctx), input.Body.Level, input.Body.Wait))
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "dismiss-volume",
		Method:      http.MethodDelete,
		Path:        "/api/volume",
		Summary:     "Dismiss Volume Bar",
		Tags:        []string{"playback"},
		Security:    withAuth(),
		Errors:      []int{401, 502},
	}, func(ctx context.Context, _ *struct{}) (*models.PlaybackResponse, error) {
		return playbackResponse(s.glyph.DismissVolume(playbackContext(ctx)))
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "play-call",
		Method:      http.MethodPost,
		Path:        "/api/call",
		Summary:     "Start Call Loop",
		Description: "Preempt every other animation and loop the call animation until stopped",
		Tags:        []string{"playback"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(ctx context.Context, input *models.CallRequest) (*models.PlaybackResponse, error) {
		return playbackResponse(s.glyph.PlayCall(playbackContext(ctx), input.Body.Name))
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-call",
		Method:      http.MethodDelete,
		Path:        "/api/call",
		Summary:     "Stop Call Loop",
		Tags:        []string{"playback"},
		Security:    withAuth(),
		Errors:      []int{401, 502},
	}, func(ctx context.Context, _ *struct{}) (*models.PlaybackResponse, error) {
		return playbackResponse(s.glyph.StopCall(playbackContext(ctx)))
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "play-essential",
		Method:      http.MethodPost,
		Path:        "/api/essential",
		Summary:     "Raise Essential LED",
		Description: "Ramp the essential notification LED up to its floor and keep it lit",
		Tags:        []string{"playback"},
		Security:    withAuth(),
		Errors:      []int{401, 502, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.PlaybackResponse, error) {
		return playbackResponse(s.glyph.PlayEssential(playbackContext(ctx)))
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-essential",
		Method:      http.MethodDelete,
		Path:        "/api/essential",
		Summary:     "Lower Essential LED",
		Tags:        []string{"playback"},
		Security:    withAuth(),
		Errors:      []int{401, 502},
	}, func(ctx context.Context, _ *struct{}) (*models.PlaybackResponse, error) {
		return playbackResponse(s.glyph.StopEssential(playbackContext(ctx)))
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "play-music",
		Method:      http.MethodPost,
		Path:        "/api/music",
		Summary:     "Flash Music Band",
		Description: "Flash the zone of one frequency band. Denied while any other animation is shown.",
		Tags:        []string{"playback"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 502},
	}, func(ctx context.Context, input *models.MusicRequest) (*models.PlaybackResponse, error) {
		return playbackResponse(s.glyph.PlayMusic(playbackContext(ctx), input.Body.Band))
	})
}

// registerStatusRoutes registers arbitration status and override endpoints.
func (s *Server) registerStatusRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Get Status",
		Description: "Snapshot of the arbitration flags and progress bar caches",
		Tags:        []string{"status"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.StatusResponse, error) {
		return &models.StatusResponse{Body: s.glyph.Status()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-override",
		Method:      http.MethodPut,
		Path:        "/api/override",
		Summary:     "Set LED Override",
		Description: "Hold or release every LED for an external collaborator. Running animations yield at their next frame.",
		Tags:        []string{"status"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, input *models.OverrideRequest) (*models.OverrideResponse, error) {
		s.glyph.SetOverride(input.Body.Active)
		resp := &models.OverrideResponse{}
		resp.Body.Active = s.glyph.Status().AllLEDActive
		return resp, nil
	})
}
