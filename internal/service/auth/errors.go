package auth

import "errors"

var (
	// ErrInvalidToken covers malformed tokens, bad signatures and
	// unexpected signing methods.
	ErrInvalidToken     = errors.New("invalid authentication token")
	ErrExpiredToken     = errors.New("authentication token has expired")
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")
	ErrMissingToken     = errors.New("authentication token is missing")

	// ErrInvalidSubject means the sub claim does not parse as a user id.
	ErrInvalidSubject = errors.New("authentication token subject is not a user id")
)
