package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Project defaults.
const (
	DefaultPlatform  = "YouTube"
	DefaultColorCode = "#000000"
	DefaultEmoji     = "VP"

	maxProjectTitleLen = 200
)

var (
	ErrEmptyProjectTitle   = errors.New("project title cannot be empty")
	ErrProjectTitleTooLong = errors.New("project title is too long")
	ErrEmptyProjectOwner   = errors.New("project owner cannot be empty")
)

// Project groups the videos a user produces for one channel or campaign.
type Project struct {
	ID          int64     `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Platform    string    `json:"platform"`
	ColorCode   string    `json:"color_code"`
	Emoji       string    `json:"emoji"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProject creates a project with default presentation settings.
func NewProject(ownerID uuid.UUID, title, description string) (*Project, error) {
	now := time.Now().UTC()
	p := &Project{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(title),
		Description: description,
		Platform:    DefaultPlatform,
		ColorCode:   DefaultColorCode,
		Emoji:       DefaultEmoji,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks if the Project has valid data.
func (p *Project) Validate() error {
	if p.OwnerID == uuid.Nil {
		return ErrEmptyProjectOwner
	}
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyProjectTitle
	}
	if len(p.Title) > maxProjectTitleLen {
		return ErrProjectTitleTooLong
	}
	if p.ColorCode != "" && !IsHexColor(p.ColorCode) {
		return ErrInvalidColor
	}
	return nil
}

// IsOwnedBy reports whether userID owns the project.
func (p *Project) IsOwnedBy(userID uuid.UUID) bool {
	return p.OwnerID == userID
}

// IsHexColor reports whether s has the form #RRGGBB.
func IsHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
