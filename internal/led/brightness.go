package led

import (
	"fmt"
	"sync/atomic"
)

// Ceiling is the user-configured overall brightness in device units.
// Safe for concurrent use.
type Ceiling struct {
	max   int
	level atomic.Int64
}

// NewCeiling returns a ceiling bounded by limit and initialised to level.
func NewCeiling(limit, level int) (*Ceiling, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("brightness max must be positive, got %d", limit)
	}
	c := &Ceiling{max: limit}
	if err := c.Set(level); err != nil {
		return nil, err
	}
	return c, nil
}

// Brightness returns the current ceiling.
func (c *Ceiling) Brightness() int {
	return int(c.level.Load())
}

// Max returns the upper bound accepted by Set.
func (c *Ceiling) Max() int {
	return c.max
}

// Set changes the ceiling. Values outside [0, Max] are rejected.
func (c *Ceiling) Set(level int) error {
	if level < 0 || level > c.max {
		return fmt.Errorf("brightness %d out of range [0, %d]", level, c.max)
	}
	c.level.Store(int64(level))
	return nil
}
