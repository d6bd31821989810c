package glyph

import "context"

// Service is the surface event sources drive.
type Service interface {
	PlayCSV(name string, wait bool) (Outcome, error)
	PlayCharging(ctx context.Context, level int, wait bool) (Outcome, error)
	DismissCharging(ctx context.Context) (Outcome, error)
	PlayVolume(ctx context.Context, level int, wait bool) (Outcome, error)
	DismissVolume(ctx context.Context) (Outcome, error)
	PlayCall(ctx context.Context, name string) (Outcome, error)
	StopCall(ctx context.Context) (Outcome, error)
	PlayEssential(ctx context.Context) (Outcome, error)
	StopEssential(ctx context.Context) (Outcome, error)
	PlayMusic(ctx context.Context, band string) (Outcome, error)
	SetOverride(active bool)
	Status() State
}

var _ Service = (*Engine)(nil)
