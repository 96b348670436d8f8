package registry

import "go.uber.org/zap"

// Option configures registry construction.
type Option func(*options)

type options struct {
	typeID       TypeIDFunc
	strictBoosts bool
	logger       *zap.Logger
}

// WithTypeIDFunc overrides DefaultTypeID.
func WithTypeIDFunc(fn TypeIDFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.typeID = fn
		}
	}
}

// WithStrictBoosts rejects non-positive or non-finite boosts with
// ErrInvalidBoost. Without it such boosts are accepted and logged.
func WithStrictBoosts() Option {
	return func(o *options) {
		o.strictBoosts = true
	}
}

// WithLogger sets the logger used for construction warnings.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
