package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/finwatch/fraud-platform/internal/domain/entities"
	"github.com/finwatch/fraud-platform/internal/store"
)

// TransactionRepository is the postgres-backed TransactionStore. Rows are
// immutable once written — no Update/Delete method exists on the interface
// or this implementation.
type TransactionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	tracer trace.Tracer
}

func NewTransactionRepository(db *sqlx.DB, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{db: db, logger: logger, tracer: otel.Tracer("transaction-repository")}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	ctx, span := r.tracer.Start(ctx, "transaction_repo.create", trace.WithAttributes(
		attribute.String("correlation_id", tx.CorrelationID.String()),
		attribute.String("decision", string(tx.Decision)),
	))
	defer span.End()

	const query = `
		INSERT INTO transactions (
			correlation_id, iban, amount, vendor_id, invoice_number,
			fraud_score, decision, risk_factors, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := r.db.QueryRowxContext(ctx, query,
		tx.CorrelationID, tx.IBAN, tx.Amount, tx.VendorID, tx.InvoiceNumber,
		tx.FraudScore, string(tx.Decision), pq.Array(tx.RiskFactors), tx.CreatedAt,
	).Scan(&tx.ID)
	if err != nil {
		span.RecordError(err)
		r.logger.Error("failed to persist transaction", zap.Error(err),
			zap.String("correlation_id", tx.CorrelationID.String()))
		return fmt.Errorf("persist transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) CountSince(ctx context.Context, field store.CountField, value string, since time.Time) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "transaction_repo.count_since", trace.WithAttributes(
		attribute.String("field", string(field)),
	))
	defer span.End()

	var query string
	switch field {
	case store.CountFieldIBAN:
		query = `SELECT COUNT(*) FROM transactions WHERE iban = $1 AND created_at >= $2`
	case store.CountFieldVendorID:
		query = `SELECT COUNT(*) FROM transactions WHERE vendor_id = $1 AND created_at >= $2`
	default:
		return 0, fmt.Errorf("unsupported count field %q", field)
	}

	var count int64
	if err := r.db.QueryRowxContext(ctx, query, value, since).Scan(&count); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		span.RecordError(err)
		r.logger.Error("failed to count transactions", zap.Error(err), zap.String("field", string(field)))
		return 0, fmt.Errorf("count transactions since: %w", err)
	}
	return count, nil
}
