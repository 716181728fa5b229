package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/finwatch/fraud-platform/internal/domain/entities"
)

// IBANRepository is the postgres-backed read-only IBAN registry.
type IBANRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	tracer trace.Tracer
}

func NewIBANRepository(db *sqlx.DB, logger *zap.Logger) *IBANRepository {
	return &IBANRepository{db: db, logger: logger, tracer: otel.Tracer("iban-repository")}
}

func (r *IBANRepository) Lookup(ctx context.Context, iban string) (*entities.IBANRecord, error) {
	ctx, span := r.tracer.Start(ctx, "iban_repo.lookup")
	defer span.End()

	const query = `SELECT iban, risky FROM ibans WHERE iban = $1`

	var rec entities.IBANRecord
	if err := r.db.QueryRowxContext(ctx, query, iban).Scan(&rec.IBAN, &rec.Risky); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		span.RecordError(err)
		r.logger.Error("failed to look up iban", zap.Error(err), zap.String("iban", iban))
		return nil, fmt.Errorf("lookup iban: %w", err)
	}
	return &rec, nil
}
