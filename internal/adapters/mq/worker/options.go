package worker

import (
	"time"

	"github.com/okian/faceattr/pkg/logger"
)

// Option configures a Pool.
type Option func(*config)

type config struct {
	jobTimeout time.Duration
	logger     logger.Logger
}

// WithJobTimeout bounds each Handler call.
func WithJobTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.jobTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the pool and its workers.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
