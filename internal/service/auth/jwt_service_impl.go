package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/config"
	"github.com/miyog/miyog-engine/internal/platform/logger"
)

// MinSecretLength is the shortest HMAC secret accepted.
const MinSecretLength = 32

// hmacJWTService signs and verifies with a shared HS256 secret.
type hmacJWTService struct {
	signingKey []byte
	timeFunc   func() time.Time
	clockSkew  time.Duration
}

// jwtCustomClaims mirrors the identity provider's access token. Audience is
// carried but never checked.
type jwtCustomClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var _ JWTService = (*hmacJWTService)(nil)

// NewJWTService rejects secrets shorter than MinSecretLength.
func NewJWTService(cfg config.AuthConfig) (JWTService, error) {
	return newHMACJWTService(cfg, time.Now)
}

func newHMACJWTService(cfg config.AuthConfig, now func() time.Time) (*hmacJWTService, error) {
	if len(cfg.JWTSecret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", MinSecretLength)
	}
	if cfg.ClockSkewSeconds < 0 {
		return nil, fmt.Errorf("clock skew must not be negative")
	}
	return &hmacJWTService{
		signingKey: []byte(cfg.JWTSecret),
		timeFunc:   now,
		clockSkew:  time.Duration(cfg.ClockSkewSeconds) * time.Second,
	}, nil
}

// GenerateToken mints an HS256 token shaped like the identity provider's.
func (s *hmacJWTService) GenerateToken(ctx context.Context, userID uuid.UUID, email string, lifetime time.Duration) (string, error) {
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	now := s.timeFunc()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtCustomClaims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}).SignedString(s.signingKey)
	if err != nil {
		logger.FromContext(ctx).Error("sign access token",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks signature, expiry and subject, then returns the
// caller's claims. Every rejection maps onto one of the package errors.
func (s *hmacJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	log := logger.FromContext(ctx)

	now := s.timeFunc()
	parsed := &jwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, parsed, s.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		mapped := classifyParseError(err)
		log.Debug("access token rejected",
			slog.String("reason", mapped.Error()),
			slog.String("error", err.Error()))
		return nil, mapped
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(parsed.Subject)
	if err != nil || userID == uuid.Nil {
		log.Debug("access token subject is not a user id")
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrInvalidSubject)
	}

	claims := &Claims{
		UserID:  userID,
		Email:   parsed.Email,
		Subject: parsed.Subject,
		ID:      parsed.ID,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Time
	}
	return claims, nil
}

func (s *hmacJWTService) key(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return s.signingKey, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrTokenNotYetValid
	default:
		return ErrInvalidToken
	}
}
