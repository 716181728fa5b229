package errors

import (
	"context"
	"database/sql"
	"errors"
	"net"
)

// IsInfrastructure reports whether err looks like a KV/durable-store
// infrastructure failure (context deadline or cancellation, closed
// connection or transaction, network error) rather than a caller mistake.
func IsInfrastructure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

// IsNotFound reports a "no rows" style miss, which several durable-store
// lookups treat as "absent" rather than an infrastructure failure.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
