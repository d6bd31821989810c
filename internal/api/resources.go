package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/glyphnode/internal/api/models"
	"github.com/smazurov/glyphnode/internal/glyph"
)

// registerResourceRoutes registers animation listing and tunables endpoints.
func (s *Server) registerResourceRoutes() {
	if s.options.Catalog == nil {
		s.logger.Debug("Resource catalog not available, skipping resource routes")
		return
	}
	catalog := s.options.Catalog

	huma.Register(s.api, huma.Operation{
		OperationID: "list-animations",
		Method:      http.MethodGet,
		Path:        "/api/animations",
		Summary:     "List Animations",
		Description: "Names accepted by the animation, call and music endpoints",
		Tags:        []string{"resources"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(_ context.Context, _ *struct{}) (*models.AnimationListResponse, error) {
		animations, err := catalog.Animations()
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to list animations", err)
		}
		calls, err := catalog.CallAnimations()
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to list call animations", err)
		}
		return &models.AnimationListResponse{
			Body: models.AnimationListData{
				Animations:     animations,
				CallAnimations: calls,
				MusicBands:     glyph.MusicBands(),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-tunables",
		Method:      http.MethodGet,
		Path:        "/api/tunables",
		Summary:     "Get Tunables",
		Description: "Integer and boolean tunables currently in effect",
		Tags:        []string{"resources"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.TunablesResponse, error) {
		t := catalog.Tunables()
		return &models.TunablesResponse{
			Body: models.TunablesData{
				SupportedPatternLengths: t.SupportedPatternLengths,
				Integers:                t.Integers,
				Booleans:                t.Booleans,
			},
		}, nil
	})
}
