package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCredits is the balance given to a newly provisioned user.
const DefaultCredits = 10

// placeholderEmailDomain is used for users provisioned from a token that
// carries no email claim.
const placeholderEmailDomain = "placeholder.miyog.com"

// Common validation errors
var (
	ErrEmptyUserID         = errors.New("user ID cannot be empty")
	ErrEmptyEmail          = errors.New("email cannot be empty")
	ErrNegativeCredits     = errors.New("credits cannot be negative")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// User is an account known to the engine. Identity is owned by the external
// auth provider; the engine only tracks the credit balance.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Credits   int       `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a user with the default credit balance. An empty email is
// replaced by a placeholder derived from the id.
func NewUser(id uuid.UUID, email string) (*User, error) {
	if email == "" && id != uuid.Nil {
		email = PlaceholderEmail(id)
	}
	now := time.Now().UTC()
	user := &User{
		ID:        id,
		Email:     email,
		Credits:   DefaultCredits,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// PlaceholderEmail builds the synthetic address stored for auto-provisioned users.
func PlaceholderEmail(id uuid.UUID) string {
	return id.String() + "@" + placeholderEmailDomain
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}
	if u.Email == "" {
		return ErrEmptyEmail
	}
	if !validateEmailFormat(u.Email) {
		return ErrInvalidEmail
	}
	if u.Credits < 0 {
		return ErrNegativeCredits
	}
	return nil
}

// CanAfford reports whether the balance covers cost.
func (u *User) CanAfford(cost int) bool {
	return u.Credits >= cost
}

// validateEmailFormat checks for a local part, an @ and a dotted domain.
func validateEmailFormat(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domainPart := email[at+1:]
	dot := strings.IndexByte(domainPart, '.')
	return dot > 0 && dot < len(domainPart)-1
}
