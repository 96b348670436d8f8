package registry

import (
	"errors"
	"fmt"
)

// ErrConfiguration signals a static configuration defect. It is never
// retried: the operator must fix the configuration.
var ErrConfiguration = errors.New("configuration error")

// Sentinel errors for consistent error handling. All of them match
// ErrConfiguration with errors.Is.
var (
	ErrEmptyConfig          = fmt.Errorf("%w: no entity types configured", ErrConfiguration)
	ErrNoFieldsOrAttributes = fmt.Errorf("%w: neither fields nor optional_attributes declared", ErrConfiguration)
	ErrDuplicateType        = fmt.Errorf("%w: duplicate entity type", ErrConfiguration)
	ErrInvalidType          = fmt.Errorf("%w: invalid entity type", ErrConfiguration)
	ErrReservedField        = fmt.Errorf("%w: reserved field name", ErrConfiguration)
	ErrInvalidBoost         = fmt.Errorf("%w: boost must be a positive number", ErrConfiguration)
	ErrUnknownEntity        = fmt.Errorf("%w: entity type not registered", ErrConfiguration)
	ErrUnknownTypeID        = fmt.Errorf("%w: unknown type id", ErrConfiguration)
)
