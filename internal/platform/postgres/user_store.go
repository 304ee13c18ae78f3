package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/miyog/miyog-engine/internal/domain"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/redact"
	"github.com/miyog/miyog-engine/internal/store"
)

// PostgresUserStore keeps users and credit balances in the users table.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

var _ store.UserStore = (*PostgresUserStore)(nil)

const userColumns = `id, email, credits, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Credits, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during create",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", user.ID.String()))
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.Credits, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("user already exists", slog.String("user_id", user.ID.String()))
			return fmt.Errorf("%w: %w", store.ErrEmailExists, err)
		}
		log.Error("failed to create user",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", user.ID.String()))
		return MapError(err)
	}

	log.Info("user created", slog.String("user_id", user.ID.String()))
	return nil
}

func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("user not found", slog.String("user_id", id.String()))
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user by ID",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", id.String()))
		return nil, MapError(err)
	}
	return user, nil
}

// GetOrCreate inserts with ON CONFLICT DO NOTHING and reads back, so
// concurrent first requests resolve to one user.
func (s *PostgresUserStore) GetOrCreate(ctx context.Context, id uuid.UUID, email string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	candidate, err := domain.NewUser(id, email)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		candidate.ID, candidate.Email, candidate.Credits, candidate.CreatedAt, candidate.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %w", store.ErrEmailExists, err)
		}
		log.Error("failed to provision user",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", id.String()))
		return nil, MapError(err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		log.Info("provisioned new user",
			slog.String("user_id", id.String()),
			slog.Int("credits", candidate.Credits))
	}

	return s.GetByID(ctx, id)
}

func (s *PostgresUserStore) DebitCredits(ctx context.Context, id uuid.UUID, amount int) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if amount < 0 {
		return 0, fmt.Errorf("%w: debit amount must not be negative", store.ErrInvalidEntity)
	}

	var remaining int
	err := s.db.QueryRowContext(ctx,
		`UPDATE users SET credits = credits - $2, updated_at = $3
		 WHERE id = $1 AND credits >= $2
		 RETURNING credits`,
		id, amount, time.Now().UTC(),
	).Scan(&remaining)
	if err == nil {
		log.Info("credits debited",
			slog.String("user_id", id.String()),
			slog.Int("amount", amount),
			slog.Int("remaining", remaining))
		return remaining, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Error("failed to debit credits",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", id.String()))
		return 0, MapError(err)
	}

	// No row matched: either the user is missing or the balance is short.
	user, getErr := s.GetByID(ctx, id)
	if getErr != nil {
		return 0, getErr
	}
	log.Debug("insufficient credits",
		slog.String("user_id", id.String()),
		slog.Int("balance", user.Credits),
		slog.Int("amount", amount))
	return user.Credits, domain.ErrInsufficientCredits
}

func (s *PostgresUserStore) AddCredits(ctx context.Context, id uuid.UUID, amount int) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var balance int
	err := s.db.QueryRowContext(ctx,
		`UPDATE users SET credits = credits + $2, updated_at = $3
		 WHERE id = $1 RETURNING credits`,
		id, amount, time.Now().UTC(),
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrUserNotFound
		}
		log.Error("failed to add credits",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", id.String()))
		return 0, MapError(err)
	}

	log.Info("credits added",
		slog.String("user_id", id.String()),
		slog.Int("amount", amount),
		slog.Int("balance", balance))
	return balance, nil
}

func (s *PostgresUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete user",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrUserNotFound); err != nil {
		return err
	}

	log.Info("user deleted", slog.String("user_id", id.String()))
	return nil
}

func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{db: tx, logger: s.logger}
}
