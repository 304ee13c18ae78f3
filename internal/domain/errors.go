package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is wrapped by every field-level validation error, so callers
// can map the whole family onto a 400.
var ErrValidation = errors.New("validation failed")

// ErrUnauthorized is returned when the caller may not act on an entity.
var ErrUnauthorized = errors.New("unauthorized operation")

// Field validation errors.
var (
	ErrInvalidEmail      = fmt.Errorf("%w: invalid email format", ErrValidation)
	ErrInvalidResolution = fmt.Errorf("%w: invalid resolution", ErrValidation)
	ErrInvalidColor      = fmt.Errorf("%w: invalid color", ErrValidation)
)
