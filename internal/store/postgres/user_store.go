package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/finwatch/fraud-platform/internal/domain/entities"
	apperrors "github.com/finwatch/fraud-platform/pkg/errors"
)

// UserRepository is the postgres-backed UserStore.
type UserRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	tracer trace.Tracer
}

func NewUserRepository(db *sqlx.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger, tracer: otel.Tracer("user-repository")}
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	ctx, span := r.tracer.Start(ctx, "user_repo.get_by_username", trace.WithAttributes(
		attribute.String("username", username),
	))
	defer span.End()

	const query = `
		SELECT id, username, email, password_hash, display_name, active, locked,
		       failed_attempts, last_login_at, created_at
		FROM users
		WHERE username = $1`

	var user entities.User
	var lastLoginAt sql.NullTime

	err := r.db.QueryRowxContext(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.DisplayName,
		&user.Active, &user.Locked, &user.FailedAttempts, &lastLoginAt, &user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.AuthCredentialsInvalid("no such user")
		}
		span.RecordError(err)
		r.logger.Error("failed to get user by username", zap.Error(err), zap.String("username", username))
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	ctx, span := r.tracer.Start(ctx, "user_repo.get_by_id", trace.WithAttributes(
		attribute.Int64("user_id", id),
	))
	defer span.End()

	const query = `
		SELECT id, username, email, password_hash, display_name, active, locked,
		       failed_attempts, last_login_at, created_at
		FROM users
		WHERE id = $1`

	var user entities.User
	var lastLoginAt sql.NullTime

	err := r.db.QueryRowxContext(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.DisplayName,
		&user.Active, &user.Locked, &user.FailedAttempts, &lastLoginAt, &user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.AuthCredentialsInvalid("no such user")
		}
		span.RecordError(err)
		r.logger.Error("failed to get user by id", zap.Error(err), zap.Int64("user_id", id))
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}
	return &user, nil
}

func (r *UserRepository) RecordLoginSuccess(ctx context.Context, userID int64, at time.Time) error {
	ctx, span := r.tracer.Start(ctx, "user_repo.record_login_success")
	defer span.End()

	const query = `UPDATE users SET failed_attempts = 0, last_login_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID, at); err != nil {
		span.RecordError(err)
		r.logger.Error("failed to record login success", zap.Error(err), zap.Int64("user_id", userID))
		return fmt.Errorf("record login success: %w", err)
	}
	return nil
}

// Create inserts a new user, doing nothing if the username already exists.
// It reports via the returned bool whether a row was actually inserted, so
// callers seeding a default account can tell a first boot from a repeat one.
func (r *UserRepository) Create(ctx context.Context, user *entities.User) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "user_repo.create", trace.WithAttributes(
		attribute.String("username", user.Username),
	))
	defer span.End()

	const query = `
		INSERT INTO users (username, email, password_hash, display_name, active, locked)
		VALUES ($1, $2, $3, $4, true, false)
		ON CONFLICT (username) DO NOTHING
		RETURNING id`

	var id int64
	err := r.db.QueryRowxContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.DisplayName).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		r.logger.Error("failed to create user", zap.Error(err), zap.String("username", user.Username))
		return false, fmt.Errorf("create user: %w", err)
	}
	user.ID = id
	return true, nil
}

func (r *UserRepository) RecordLoginFailure(ctx context.Context, userID int64) error {
	ctx, span := r.tracer.Start(ctx, "user_repo.record_login_failure")
	defer span.End()

	const query = `UPDATE users SET failed_attempts = failed_attempts + 1 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		span.RecordError(err)
		r.logger.Error("failed to record login failure", zap.Error(err), zap.Int64("user_id", userID))
		return fmt.Errorf("record login failure: %w", err)
	}
	return nil
}
