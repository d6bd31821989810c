package tasks

import (
	"log/slog"
	"time"
)

const defaultStopTimeout = 5 * time.Second

// StateChangeCallback is called on every state transition of a task.
type StateChangeCallback func(id string, oldState, newState State, err error)

// PoolOptions configures a new Pool.
type PoolOptions struct {
	// OnStateChange is called when a task changes state (optional).
	OnStateChange StateChangeCallback

	// StopTimeout bounds how long Stop waits for a task to return.
	// Zero means 5s.
	StopTimeout time.Duration

	// Logger for pool operations. If nil, uses slog.Default().
	Logger *slog.Logger
}
