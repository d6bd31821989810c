package glyph

import (
	"fmt"
	"strings"
)

// Source identifies a playback kind. The interruption probe and the
// admission gate compare sources by value.
type Source int

// Playback sources.
const (
	SourceCSV Source = iota
	SourceCharging
	SourceVolume
	SourceDismiss
	SourceCall
	SourceEssential
	SourceMusic
)

var sourceNames = [...]string{
	SourceCSV:       "csv",
	SourceCharging:  "charging",
	SourceVolume:    "volume",
	SourceDismiss:   "dismiss",
	SourceCall:      "call",
	SourceEssential: "essential",
	SourceMusic:     "music",
}

func (s Source) String() string {
	if s < 0 || int(s) >= len(sourceNames) {
		return fmt.Sprintf("source(%d)", int(s))
	}
	return sourceNames[s]
}

// ParseSource returns the source named s.
func ParseSource(s string) (Source, error) {
	for i, name := range sourceNames {
		if strings.EqualFold(name, s) {
			return Source(i), nil
		}
	}
	return 0, fmt.Errorf("unknown source %q", s)
}

// Outcome is the result of a public operation.
type Outcome string

// Operation outcomes. Denied, interrupted and skipped are normal returns.
const (
	OutcomeCompleted   Outcome = "completed"
	OutcomeScheduled   Outcome = "scheduled"
	OutcomeStarted     Outcome = "started"
	OutcomeDenied      Outcome = "denied"
	OutcomeInterrupted Outcome = "interrupted"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeFailed      Outcome = "failed"
)

// DenyReason explains why a request was not admitted.
type DenyReason string

// Deny reasons. The empty reason means admitted.
const (
	Admitted     DenyReason = ""
	DenyOverride DenyReason = "override"
	DenyCall     DenyReason = "call"
	DenyBusy     DenyReason = "busy"
	DenyTimeout  DenyReason = "timeout"
	DenyGated    DenyReason = "gated"
	DenyShutdown DenyReason = "shutdown"
)
