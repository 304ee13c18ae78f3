package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when a provider fails for any general reason
	ErrGenerationFailed = errors.New("failed to generate content")

	// ErrInvalidResponse is returned when a provider response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from provider")

	// ErrContentBlocked is returned when the provider blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by provider safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during generation")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrEmptyPrompt is returned when a generator is called without input text
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
)
