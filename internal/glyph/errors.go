package glyph

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrMalformedFrame    = errors.New("malformed frame")
	ErrUnsupportedLength = errors.New("unsupported pattern length")
	ErrUnknownBand       = errors.New("unknown music band")
	ErrClosed            = errors.New("engine closed")
)

// PlaybackError represents a failed playback.
type PlaybackError struct {
	Code   string
	Source Source
	Name   string
	Cause  error
}

func (e *PlaybackError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s %q: %v", e.Code, e.Source, e.Name, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Source, e.Cause)
}

func (e *PlaybackError) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	ErrCodeResource      = "RESOURCE_ERROR"
	ErrCodeMalformed     = "MALFORMED_FRAME"
	ErrCodeSink          = "SINK_ERROR"
	ErrCodeInvalidParams = "INVALID_PARAMS"
	ErrCodeConfig        = "CONFIG_ERROR"
)

func newPlaybackError(code string, source Source, name string, cause error) *PlaybackError {
	return &PlaybackError{
		Code:   code,
		Source: source,
		Name:   name,
		Cause:  cause,
	}
}
