package cache

import "time"

type options struct {
	name  string
	now   func() time.Time
	sweep bool
}

// Option configures a Cache.
type Option func(*options)

// WithName sets the name used in logs, errors and metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithClock replaces time.Now for access timestamps and sweeps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithoutSweeper disables the background sweep. Sweep can still be called
// directly.
func WithoutSweeper() Option {
	return func(o *options) {
		o.sweep = false
	}
}
