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

// VendorRepository is the postgres-backed vendor lookup; its only write is
// IncrementCounts.
type VendorRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	tracer trace.Tracer
}

func NewVendorRepository(db *sqlx.DB, logger *zap.Logger) *VendorRepository {
	return &VendorRepository{db: db, logger: logger, tracer: otel.Tracer("vendor-repository")}
}

func (r *VendorRepository) GetByID(ctx context.Context, id int64) (*entities.Vendor, error) {
	ctx, span := r.tracer.Start(ctx, "vendor_repo.get_by_id")
	defer span.End()

	const query = `
		SELECT id, display_name, iban, risk_bucket, active, total_count, flagged_count
		FROM vendors
		WHERE id = $1`

	var vendor entities.Vendor
	var riskBucket string

	err := r.db.QueryRowxContext(ctx, query, id).Scan(
		&vendor.ID, &vendor.DisplayName, &vendor.IBAN, &riskBucket,
		&vendor.Active, &vendor.TotalCount, &vendor.FlaggedCount,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		span.RecordError(err)
		r.logger.Error("failed to get vendor", zap.Error(err), zap.Int64("vendor_id", id))
		return nil, fmt.Errorf("get vendor: %w", err)
	}
	vendor.RiskBucket = entities.RiskBucket(riskBucket)
	return &vendor, nil
}

// IncrementCounts bumps a vendor's running transaction tally, and its
// flagged tally when the transaction was not an ALLOW decision.
func (r *VendorRepository) IncrementCounts(ctx context.Context, vendorID int64, flagged bool) error {
	ctx, span := r.tracer.Start(ctx, "vendor_repo.increment_counts")
	defer span.End()

	query := `UPDATE vendors SET total_count = total_count + 1 WHERE id = $1`
	if flagged {
		query = `UPDATE vendors SET total_count = total_count + 1, flagged_count = flagged_count + 1 WHERE id = $1`
	}

	if _, err := r.db.ExecContext(ctx, query, vendorID); err != nil {
		span.RecordError(err)
		r.logger.Error("failed to update vendor counts", zap.Error(err), zap.Int64("vendor_id", vendorID))
		return fmt.Errorf("increment vendor counts: %w", err)
	}
	return nil
}
