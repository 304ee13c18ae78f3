package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/miyog/miyog-engine/internal/api/shared"
	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/domain/timeline"
	"github.com/miyog/miyog-engine/internal/generation"
	"github.com/miyog/miyog-engine/internal/platform/pixabay"
	"github.com/miyog/miyog-engine/internal/service"
	"github.com/miyog/miyog-engine/internal/service/auth"
	"github.com/miyog/miyog-engine/internal/store"
)

// Client-facing messages.
const (
	MsgTaskCredits       = "Insufficient credits. This action requires 5 credits."
	MsgImageCredits      = "Insufficient credits. Please top up."
	MsgNotAuthorized     = "Not authorized"
	MsgProjectNotFound   = "Project not found or unauthorized"
	MsgTaskNotFound      = "Task not found or unauthorized"
	MsgFileNotFound      = "File not found"
	MsgInvalidTimeline   = "Invalid timeline"
	MsgInvalidRequest    = "Invalid request format"
	MsgUnexpected        = "An unexpected error occurred"
	MsgAssetsUnavailable = "Asset search is not configured"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking their types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrInsufficientCredits),
		errors.Is(err, service.ErrNotOwned),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	case errors.Is(err, service.ErrProjectNotFound),
		errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrInvalidTimeline),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, timeline.ErrInvalidTimeline),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidResolution),
		errors.Is(err, domain.ErrInvalidColor),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, generation.ErrEmptyPrompt):
		return http.StatusBadRequest

	case errors.Is(err, generation.ErrContentBlocked):
		return http.StatusUnprocessableEntity

	case errors.Is(err, pixabay.ErrNotConfigured):
		return http.StatusServiceUnavailable

	case errors.Is(err, generation.ErrGenerationFailed),
		errors.Is(err, generation.ErrTransientFailure),
		errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, pixabay.ErrSearchFailed):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return MsgUnexpected
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, service.ErrInsufficientCredits):
		return MsgTaskCredits
	case errors.Is(err, service.ErrNotOwned),
		errors.Is(err, domain.ErrUnauthorized):
		return MsgNotAuthorized

	case errors.Is(err, service.ErrProjectNotFound), errors.Is(err, store.ErrProjectNotFound):
		return MsgProjectNotFound
	case errors.Is(err, service.ErrTaskNotFound), errors.Is(err, store.ErrVideoTaskNotFound):
		return MsgTaskNotFound
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, service.ErrInvalidTimeline), errors.Is(err, timeline.ErrInvalidTimeline):
		return MsgInvalidTimeline
	case errors.Is(err, domain.ErrInvalidResolution):
		return "Invalid resolution"
	case errors.Is(err, domain.ErrInvalidColor):
		return "Invalid color"
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, generation.ErrEmptyPrompt):
		return "Invalid input"

	case errors.Is(err, generation.ErrContentBlocked):
		return "The request was blocked by the provider's safety filters"
	case errors.Is(err, pixabay.ErrNotConfigured):
		return MsgAssetsUnavailable
	case errors.Is(err, generation.ErrGenerationFailed),
		errors.Is(err, generation.ErrTransientFailure),
		errors.Is(err, generation.ErrInvalidResponse):
		return "Generation service unavailable, please retry"
	case errors.Is(err, pixabay.ErrSearchFailed):
		return "Asset search failed"

	default:
		return MsgUnexpected
	}
}

// HandleAPIError writes the mapped status and safe message for err. A
// non-empty fallback replaces the generic message on 500 responses.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}
	var opts []shared.ResponseOption
	if status == http.StatusForbidden {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// SanitizeValidationError turns validator output into "Invalid <field>:
// <reason>" without exposing struct names.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), validationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "gte", "gt":
		return "too small"
	case "lte", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	case "hexcolor":
		return "invalid color"
	default:
		return "validation failed"
	}
}
