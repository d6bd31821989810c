package models

import (
	"github.com/smazurov/glyphnode/internal/glyph"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2026-10-16 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	Modified  bool   `json:"modified" doc:"Built from a tree with uncommitted changes"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Playback models
type PlaybackData struct {
	Outcome string `json:"outcome" enum:"completed,scheduled,started,denied,interrupted,skipped,failed" example:"completed" doc:"Result of the request"`
}

type PlaybackResponse struct {
	Body PlaybackData
}

type AnimationPlayRequest struct {
	Name string `path:"name" pattern:"^[a-zA-Z0-9_.-]+$" example:"pulse" doc:"Animation name without extension"`
	Body *struct {
		Wait bool `json:"wait,omitempty" example:"false" doc:"Queue behind a running animation instead of being denied"`
	} `required:"false"`
}

type ProgressRequest struct {
	Body struct {
		Level int  `json:"level" minimum:"0" maximum:"100" example:"75" doc:"Level in percent"`
		Wait  bool `json:"wait,omitempty" example:"false" doc:"Wait for a running animation to finish"`
	}
}

type CallRequest struct {
	Body struct {
		Name string `json:"name" pattern:"^[a-zA-Z0-9_.-]+$" example:"ring" doc:"Call animation name"`
	}
}

type MusicRequest struct {
	Body struct {
		Band string `json:"band" enum:"low,mid_low,mid,mid_high,high" example:"mid" doc:"Frequency band to flash"`
	}
}

// Status models
type StatusResponse struct {
	Body glyph.State
}

type OverrideRequest struct {
	Body struct {
		Active bool `json:"active" example:"true" doc:"Hold every LED for an external collaborator"`
	}
}

type OverrideResponse struct {
	Body struct {
		Active bool `json:"active" doc:"Current override state"`
	}
}

// Brightness models
type BrightnessData struct {
	Level int `json:"level" example:"2048" doc:"Brightness ceiling in device units"`
	Max   int `json:"max" example:"4095" doc:"Highest accepted ceiling"`
}

type BrightnessResponse struct {
	Body BrightnessData
}

type BrightnessRequest struct {
	Body struct {
		Level int `json:"level" minimum:"0" example:"2048" doc:"New brightness ceiling in device units"`
	}
}

// Resource models
type AnimationListData struct {
	Animations     []string `json:"animations" doc:"Scripted animations"`
	CallAnimations []string `json:"call_animations" doc:"Call animations"`
	MusicBands     []string `json:"music_bands" doc:"Accepted music bands"`
}

type AnimationListResponse struct {
	Body AnimationListData
}

type TunablesData struct {
	SupportedPatternLengths []int           `json:"supported_pattern_lengths" doc:"Frame lengths the LED driver accepts"`
	Integers                map[string]int  `json:"integers" doc:"Integer tunables"`
	Booleans                map[string]bool `json:"booleans" doc:"Boolean tunables"`
}

type TunablesResponse struct {
	Body TunablesData
}
