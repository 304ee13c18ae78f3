package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/miyog/miyog-engine/internal/api/shared"
	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/redact"
	"github.com/miyog/miyog-engine/internal/service/auth"
)

// TokenQueryParam carries the access token on websocket upgrades, where
// browsers cannot set an Authorization header.
const TokenQueryParam = "token"

// UserProvisioner resolves the user behind a validated token, creating it on
// first sight.
type UserProvisioner interface {
	GetOrProvision(ctx context.Context, userID uuid.UUID, email string) (*domain.User, error)
}

// AuthMiddleware provides JWT authentication for routes.
type AuthMiddleware struct {
	jwtService auth.JWTService
	users      UserProvisioner
	logger     *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. users may be nil, in which
// case tokens are trusted without touching the user table.
func NewAuthMiddleware(jwtService auth.JWTService, users UserProvisioner, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		users:      users,
		logger:     logger.With(slog.String("component", "auth_middleware")),
	}
}

// bearerToken extracts the token from the request.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if websocket.IsWebSocketUpgrade(r) {
			if token := r.URL.Query().Get(TokenQueryParam); token != "" {
				return token, true
			}
		}
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// Authenticate validates the bearer token, provisions the user and stores
// its ID in the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContextOrDefault(r.Context(), m.logger)

		token, ok := bearerToken(r)
		if !ok {
			msg := "Invalid authorization format"
			if r.Header.Get("Authorization") == "" {
				msg = "Authorization header required"
			}
			shared.RespondWithError(w, r, http.StatusUnauthorized, msg)
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, auth.ErrInvalidToken),
				errors.Is(err, auth.ErrTokenNotYetValid),
				errors.Is(err, auth.ErrMissingToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			default:
				log.Error("failed to validate token", slog.String("error", redact.Error(err)))
				shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			}
			return
		}

		if m.users != nil {
			if _, err := m.users.GetOrProvision(r.Context(), claims.UserID, claims.Email); err != nil {
				shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Authentication error", err)
				return
			}
		}

		ctx := shared.WithUserID(r.Context(), claims.UserID)
		ctx = logger.WithLogger(ctx, log.With(slog.String("user_id", claims.UserID.String())))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID extracts the user ID from the request context.
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	return shared.UserIDFromContext(r.Context())
}
