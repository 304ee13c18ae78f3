// Package service provides application-level services for users, projects,
// video tasks and on-demand AI generation.
package service

import (
	"errors"
	"fmt"

	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/store"
)

// Sentinel errors returned for the conditions handlers branch on. Anything
// else comes back as a *ServiceError; the api package maps both onto status
// codes.
var (
	// ErrNotOwned indicates a resource is owned by a different user than the one making the request.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrInsufficientCredits indicates the caller cannot pay for the action.
	// API layer should map this to HTTP 403 Forbidden.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrUserNotFound indicates the authenticated user has no account row.
	ErrUserNotFound = errors.New("user not found")

	// ErrProjectNotFound is returned both for missing projects and for
	// projects owned by someone else, so ownership is not disclosed.
	ErrProjectNotFound = errors.New("project not found or unauthorized")

	// ErrTaskNotFound is the task counterpart of ErrProjectNotFound.
	ErrTaskNotFound = errors.New("task not found or unauthorized")

	// ErrInvalidTimeline indicates an editor export carried an unusable timeline.
	ErrInvalidTimeline = errors.New("invalid timeline")

	// ErrInvalidInput indicates a request field failed a service-level check.
	ErrInvalidInput = errors.New("invalid input")
)

// ServiceError wraps unexpected failures with the service and operation
// that produced them.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s operation failed: %v", e.Service, e.Op, e.Err)
	}
	return fmt.Sprintf("%s service %s operation failed", e.Service, e.Op)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// NewServiceError wraps err with the service and operation names.
func NewServiceError(service, op string, err error) error {
	return &ServiceError{Service: service, Op: op, Err: err}
}

// mapError returns service sentinels for the store and domain conditions
// callers branch on and wraps everything else in a ServiceError.
func mapError(service, op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotOwned),
		errors.Is(err, ErrInsufficientCredits),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrProjectNotFound),
		errors.Is(err, ErrTaskNotFound),
		errors.Is(err, ErrInvalidTimeline),
		errors.Is(err, ErrInvalidInput):
		return err
	case errors.Is(err, domain.ErrInsufficientCredits):
		return ErrInsufficientCredits
	case errors.Is(err, store.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, store.ErrProjectNotFound):
		return ErrProjectNotFound
	case errors.Is(err, store.ErrVideoTaskNotFound):
		return ErrTaskNotFound
	}
	return NewServiceError(service, op, err)
}
