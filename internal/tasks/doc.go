// Package tasks runs named long-lived goroutines with lifecycle control.
//
// A Pool owns a set of tasks keyed by ID:
//   - Start launches a task under a context derived from the pool
//   - Stop cancels the task and joins it, bounded by a timeout
//   - State is tracked per ID (idle, running, stopping, error)
//   - OnStateChange lets callers react to transitions
//   - StopAll cancels and joins everything at shutdown
//
// The glyph engine runs its script worker and the call loop as pool tasks:
//
//	pool := tasks.NewPool(&tasks.PoolOptions{Logger: logger})
//	_ = pool.Start("call", func(ctx context.Context) error {
//		return loop(ctx)
//	})
//	defer pool.StopAll()
package tasks
