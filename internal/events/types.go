package events

// Event type constants for kelindar/event.
const (
	TypeAnimationStarted uint32 = iota + 1
	TypeAnimationFinished
	TypeAdmissionDenied
	TypeOverrideChanged
	TypeBrightnessChanged
	TypeLogEntry
	TypeSourceStats
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// AnimationStartedEvent is published when a playback is admitted and starts
// writing frames.
type AnimationStartedEvent struct {
	RunID     string `json:"run_id" example:"5f0c6a1e-3f7b-4c55-9a55-2d1f8b7f9d10" doc:"Unique playback identifier"`
	Source    string `json:"source" example:"csv" doc:"Playback kind: csv, charging, volume, dismiss, call, essential, music"`
	Name      string `json:"name" example:"notification" doc:"Animation name, band or progress source"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for AnimationStartedEvent.
func (e AnimationStartedEvent) Type() uint32 { return TypeAnimationStarted }

// AnimationFinishedEvent is published when a playback ends for any reason.
type AnimationFinishedEvent struct {
	RunID      string `json:"run_id" doc:"Identifier from the matching started event"`
	Source     string `json:"source" example:"csv" doc:"Playback kind"`
	Name       string `json:"name" example:"notification" doc:"Animation name"`
	Outcome    string `json:"outcome" example:"completed" doc:"completed, interrupted or failed"`
	Frames     int    `json:"frames" example:"120" doc:"Frames written to the LED sink"`
	Error      string `json:"error,omitempty" doc:"Failure description when outcome is failed"`
	DurationMs int64  `json:"duration_ms" example:"2016" doc:"Wall time spent in playback"`
	Timestamp  string `json:"timestamp" example:"2026-01-27T10:30:02Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for AnimationFinishedEvent.
func (e AnimationFinishedEvent) Type() uint32 { return TypeAnimationFinished }

// AdmissionDeniedEvent is published when a playback request is refused.
type AdmissionDeniedEvent struct {
	Source    string `json:"source" example:"csv" doc:"Playback kind"`
	Name      string `json:"name" example:"notification" doc:"Animation name"`
	Reason    string `json:"reason" example:"busy" doc:"override, call, busy, timeout or gated"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for AdmissionDeniedEvent.
func (e AdmissionDeniedEvent) Type() uint32 { return TypeAdmissionDenied }

// OverrideChangedEvent is published when an external collaborator takes or
// releases every LED.
type OverrideChangedEvent struct {
	Active    bool   `json:"active" doc:"Whether all LEDs are held by a collaborator"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for OverrideChangedEvent.
func (e OverrideChangedEvent) Type() uint32 { return TypeOverrideChanged }

// BrightnessChangedEvent is published when the brightness ceiling changes.
type BrightnessChangedEvent struct {
	Level     int    `json:"level" example:"2048" doc:"New brightness ceiling in device units"`
	Timestamp string `json:"timestamp" example:"2026-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for BrightnessChangedEvent.
func (e BrightnessChangedEvent) Type() uint32 { return TypeBrightnessChanged }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" example:"2026-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"glyph" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// SourceStatsEvent carries periodic per-source playback counters.
type SourceStatsEvent struct {
	Source      string `json:"source" example:"csv" doc:"Playback kind"`
	Runs        string `json:"runs" example:"12" doc:"Admitted playbacks since start"`
	Frames      string `json:"frames" example:"1440" doc:"Frames written since start"`
	Denied      string `json:"denied" example:"3" doc:"Refused requests since start"`
	LastOutcome string `json:"last_outcome,omitempty" example:"completed" doc:"Outcome of the most recent playback"`
}

// Type returns the event type identifier for SourceStatsEvent.
func (e SourceStatsEvent) Type() uint32 { return TypeSourceStats }
