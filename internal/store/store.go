// Package store defines the durable-storage contracts the two services
// build against: plain constructor-wired interfaces, no DI framework.
package store

import (
	"context"
	"time"

	"github.com/finwatch/fraud-platform/internal/domain/entities"
)

// UserStore is owned by the edge service.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	GetByID(ctx context.Context, id int64) (*entities.User, error)
	RecordLoginSuccess(ctx context.Context, userID int64, at time.Time) error
	RecordLoginFailure(ctx context.Context, userID int64) error
}

// TokenStore is owned by the edge service. Token strings are unique across
// the store; a given token appears at most once.
type TokenStore interface {
	Create(ctx context.Context, record *entities.TokenRecord) error
	// Get returns the record for (userID, token) if present and not expired.
	Get(ctx context.Context, userID int64, token string) (*entities.TokenRecord, error)
	Revoke(ctx context.Context, token string) error
	Delete(ctx context.Context, userID int64, token string) error
}

// TransactionStore is owned by the scoring service.
type TransactionStore interface {
	Create(ctx context.Context, tx *entities.Transaction) error
	// CountSince is the durable fallback for velocity counting when the KV
	// store is unavailable.
	CountSince(ctx context.Context, field CountField, value string, since time.Time) (int64, error)
}

// IBANStore is the read-only registry, owned by the scoring service.
type IBANStore interface {
	Lookup(ctx context.Context, iban string) (*entities.IBANRecord, error)
}

// VendorStore is the vendor reference registry. GetByID reads one vendor
// row (the engine does not call it); IncrementCounts maintains the running
// total/flagged tallies the engine updates after every scored transaction.
type VendorStore interface {
	GetByID(ctx context.Context, id int64) (*entities.Vendor, error)
	IncrementCounts(ctx context.Context, vendorID int64, flagged bool) error
}

// AuditStore is append-only; no UPDATE/DELETE ever issued against it.
type AuditStore interface {
	Append(ctx context.Context, event *entities.AuditEvent) error
}

// CountField names the two columns CountSince may be asked to filter on.
type CountField string

const (
	CountFieldIBAN     CountField = "iban"
	CountFieldVendorID CountField = "vendor_id"
)
