package index

import (
	"time"

	"go.uber.org/zap"
)

// DefaultLockTimeout bounds how long Open waits for the lock file.
const DefaultLockTimeout = 5 * time.Second

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	lockTimeout time.Duration
	logger      *zap.Logger
}

func applyOptions(opts []Option) openOptions {
	o := openOptions{lockTimeout: DefaultLockTimeout, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLockTimeout sets how long Open waits for another process to release
// the index.
func WithLockTimeout(d time.Duration) Option {
	return func(o *openOptions) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// WithLogger sets the index logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *openOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
