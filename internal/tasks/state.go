package tasks

import "time"

// State represents the lifecycle state of a task.
type State string

// Task states.
const (
	StateIdle     State = "idle"     // Not running
	StateRunning  State = "running"  // Goroutine active
	StateStopping State = "stopping" // Cancelled, waiting for return
	StateError    State = "error"    // Returned an error on its own
)

// Info describes a task.
type Info struct {
	ID        string
	State     State
	StartedAt time.Time
	Runs      int
	LastError error
}
