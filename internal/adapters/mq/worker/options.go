package worker

import (
	"time"

	"github.com/beatfall/scoreboard/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithMaxAttempts bounds how many times a delta is applied before it is
// abandoned.
func WithMaxAttempts(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithRetryBackoff sets the delay between retry attempts.
func WithRetryBackoff(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.retryBackoff = d
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
