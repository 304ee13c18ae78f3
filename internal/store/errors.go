package store

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every store implementation. Entity-specific
// errors wrap the generic ones, so errors.Is(err, ErrNotFound) holds for a
// missing project as well as a missing user.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrDuplicate     = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	ErrUserNotFound      = fmt.Errorf("%w: user", ErrNotFound)
	ErrProjectNotFound   = fmt.Errorf("%w: project", ErrNotFound)
	ErrVideoTaskNotFound = fmt.Errorf("%w: video task", ErrNotFound)
	ErrJobNotFound       = fmt.Errorf("%w: background job", ErrNotFound)

	ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)
)

// IsNotFoundError reports whether err is, or wraps, any not-found error.
func IsNotFoundError(err error) bool { return errors.Is(err, ErrNotFound) }

// IsDuplicateError reports whether err is, or wraps, a uniqueness violation.
func IsDuplicateError(err error) bool { return errors.Is(err, ErrDuplicate) }
