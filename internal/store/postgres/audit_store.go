package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/finwatch/fraud-platform/internal/domain/entities"
)

// AuditRepository is the postgres-backed append-only audit sink. No
// UPDATE/DELETE statement is ever issued against audit_log by this type.
type AuditRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	tracer trace.Tracer
}

func NewAuditRepository(db *sqlx.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger, tracer: otel.Tracer("audit-repository")}
}

func (r *AuditRepository) Append(ctx context.Context, event *entities.AuditEvent) error {
	ctx, span := r.tracer.Start(ctx, "audit_repo.append")
	defer span.End()

	detailJSON, err := json.Marshal(event.Detail)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("marshal audit detail: %w", err)
	}

	const query = `
		INSERT INTO audit_log (
			id, user_id, action, resource, resource_id, ip_address, user_agent, detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.UserID, string(event.Action), event.Resource, event.ResourceID,
		event.IPAddress, event.UserAgent, detailJSON, event.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		r.logger.Error("failed to append audit event", zap.Error(err), zap.String("action", string(event.Action)))
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
