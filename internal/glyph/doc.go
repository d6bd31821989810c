// Package glyph arbitrates between LED animation sources and plays them.
//
// An Engine owns the shared arbitration state (Registry), the admission
// gate, the per-frame interruption probe and the frame transformer that
// scales pattern units to device units and keeps the essential LED floor.
// Scripted animations and the essential pulse run on a single scheduler
// worker; progress bars, dismissals and music flashes run on the caller;
// the call loop runs as its own task until StopCall.
package glyph
