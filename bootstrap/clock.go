package bootstrap

import (
	"time"

	"go.uber.org/zap"
)

// Clock measures time since page start.
type Clock struct {
	start time.Time
	now   func() time.Time
}

// NewClock starts a clock at the current time.
func NewClock() *Clock {
	return &Clock{start: time.Now(), now: time.Now}
}

// Since returns the elapsed milliseconds since start.
func (c *Clock) Since() int64 {
	return c.now().Sub(c.start).Milliseconds()
}

// Mark logs the elapsed time at a named startup phase.
func (c *Clock) Mark(logger *zap.Logger, phase string) {
	logger.Info("page timing",
		zap.String("phase", phase),
		zap.Int64("elapsed_ms", c.Since()))
}
