package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/redact"
	"github.com/miyog/miyog-engine/internal/store"
)

// UserService resolves the callers behind authenticated requests.
type UserService interface {
	// GetOrProvision returns the user, creating it with the default credit
	// balance on first sight. An empty email becomes a placeholder address.
	GetOrProvision(ctx context.Context, userID uuid.UUID, email string) (*domain.User, error)

	// GetUser fails with ErrNotFound for unknown ids.
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// UserServiceImpl is the store-backed UserService.
type UserServiceImpl struct {
	userStore store.UserStore
	logger    *slog.Logger
}

var _ UserService = (*UserServiceImpl)(nil)

func NewUserService(userStore store.UserStore, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		userStore: userStore,
		logger:    logger.With(slog.String("component", "user_service")),
	}
}

// GetOrProvision implements UserService.
func (s *UserServiceImpl) GetOrProvision(ctx context.Context, userID uuid.UUID, email string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if userID == uuid.Nil {
		return nil, ErrInvalidInput
	}

	user, err := s.userStore.GetOrCreate(ctx, userID, email)
	if err != nil {
		log.Error("failed to provision user",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()))
		return nil, mapError("user", "provision", err)
	}
	return user, nil
}

// GetUser implements UserService.
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Debug("user not found", slog.String("user_id", userID.String()))
		} else {
			log.Error("failed to retrieve user",
				slog.String("error", redact.Error(err)),
				slog.String("user_id", userID.String()))
		}
		return nil, mapError("user", "get", err)
	}

	log.Debug("loaded user",
		slog.String("user_id", userID.String()),
		slog.Int("credits", user.Credits))
	return user, nil
}
