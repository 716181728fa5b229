package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/finwatch/fraud-platform/internal/domain/entities"
)

// TokenRepository is the postgres-backed TokenStore. Grounded on the
// token-table shape the durable side of the dual-storage subsystem needs:
// a given token string is unique, enforced at the schema level.
type TokenRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	tracer trace.Tracer
}

func NewTokenRepository(db *sqlx.DB, logger *zap.Logger) *TokenRepository {
	return &TokenRepository{db: db, logger: logger, tracer: otel.Tracer("token-repository")}
}

func (r *TokenRepository) Create(ctx context.Context, record *entities.TokenRecord) error {
	ctx, span := r.tracer.Start(ctx, "token_repo.create")
	defer span.End()

	const query = `
		INSERT INTO jwt_tokens (token, user_id, kind, issued_at, expires_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		record.Token, record.UserID, string(record.Kind), record.IssuedAt, record.ExpiresAt, record.Revoked,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("token already exists: %w", err)
		}
		span.RecordError(err)
		r.logger.Error("failed to create token record", zap.Error(err), zap.Int64("user_id", record.UserID))
		return fmt.Errorf("create token record: %w", err)
	}
	return nil
}

func (r *TokenRepository) Get(ctx context.Context, userID int64, token string) (*entities.TokenRecord, error) {
	ctx, span := r.tracer.Start(ctx, "token_repo.get")
	defer span.End()

	const query = `
		SELECT token, user_id, kind, issued_at, expires_at, revoked, revoked_at
		FROM jwt_tokens
		WHERE user_id = $1 AND token = $2 AND revoked = false AND expires_at > now()`

	var rec entities.TokenRecord
	var kind string
	var revokedAt sql.NullTime

	err := r.db.QueryRowxContext(ctx, query, userID, token).Scan(
		&rec.Token, &rec.UserID, &kind, &rec.IssuedAt, &rec.ExpiresAt, &rec.Revoked, &revokedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		span.RecordError(err)
		r.logger.Error("failed to get token record", zap.Error(err), zap.Int64("user_id", userID))
		return nil, fmt.Errorf("get token record: %w", err)
	}
	rec.Kind = entities.TokenKind(kind)
	if revokedAt.Valid {
		rec.RevokedAt = &revokedAt.Time
	}
	return &rec, nil
}

func (r *TokenRepository) Revoke(ctx context.Context, token string) error {
	ctx, span := r.tracer.Start(ctx, "token_repo.revoke")
	defer span.End()

	const query = `UPDATE jwt_tokens SET revoked = true, revoked_at = $2 WHERE token = $1`
	if _, err := r.db.ExecContext(ctx, query, token, time.Now()); err != nil {
		span.RecordError(err)
		r.logger.Error("failed to revoke token record", zap.Error(err))
		return fmt.Errorf("revoke token record: %w", err)
	}
	return nil
}

func (r *TokenRepository) Delete(ctx context.Context, userID int64, token string) error {
	ctx, span := r.tracer.Start(ctx, "token_repo.delete")
	defer span.End()

	const query = `DELETE FROM jwt_tokens WHERE user_id = $1 AND token = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, token); err != nil {
		span.RecordError(err)
		r.logger.Error("failed to delete token record", zap.Error(err), zap.Int64("user_id", userID))
		return fmt.Errorf("delete token record: %w", err)
	}
	return nil
}
