package api

import (
	"testing"
	"time"

	"github.com/smazurov/glyphnode/internal/logging"
)

func TestLogFilter(t *testing.T) {
	tests := []struct {
		name   string
		input  LogStreamInput
		module string
		level  string
		want   bool
	}{
		{"no filter", LogStreamInput{}, "glyph", "debug", true},
		{"module match", LogStreamInput{Module: "glyph"}, "glyph", "info", true},
		{"module mismatch", LogStreamInput{Module: "glyph"}, "mqtt", "error", false},
		{"below level", LogStreamInput{Level: "warn"}, "glyph", "info", false},
		{"at level", LogStreamInput{Level: "warn"}, "glyph", "warn", true},
		{"above level", LogStreamInput{Level: "info"}, "api", "error", true},
		{"both", LogStreamInput{Module: "led", Level: "error"}, "led", "warn", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := tt.input
			if got := newLogFilter(&input).match(tt.module, tt.level); got != tt.want {
				t.Errorf("match(%q, %q) = %v, want %v", tt.module, tt.level, got, tt.want)
			}
		})
	}
}

func TestLogEvent(t *testing.T) {
	ts := time.Date(2026, 1, 9, 10, 30, 0, 123000000, time.UTC)
	ev := logEvent(logging.LogEntry{
		Timestamp:  ts,
		Level:      "info",
		Module:     "glyph",
		Message:    "Animation finished",
		Attributes: map[string]any{"name": "pulse"},
	})

	if ev.Timestamp != "2026-01-09T10:30:00.123Z" {
		t.Errorf("Timestamp = %q", ev.Timestamp)
	}
	if ev.Module != "glyph" || ev.Level != "info" || ev.Message != "Animation finished" {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Attributes["name"] != "pulse" {
		t.Errorf("Attributes = %v", ev.Attributes)
	}
}
