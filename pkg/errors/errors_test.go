package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_SetsStatusPerKind(t *testing.T) {
	cases := map[Kind]int{
		KindInputInvalid:           http.StatusBadRequest,
		KindAuthCredentialsInvalid: http.StatusUnauthorized,
		KindTokenExpired:           http.StatusUnauthorized,
		KindUpstreamUnavailable:    http.StatusBadGateway,
		KindInfrastructureDegraded: http.StatusServiceUnavailable,
		KindInternalError:          http.StatusInternalServerError,
	}
	for kind, status := range cases {
		err := New(kind, "boom")
		assert.Equal(t, status, err.StatusCode, "kind %s", kind)
	}
}

func TestWithDetail_AccumulatesFields(t *testing.T) {
	err := InputInvalid("validation failed").
		WithDetail("amount", "must be positive").
		WithDetail("iban", "malformed")

	assert.Equal(t, "must be positive", err.Details["amount"])
	assert.Equal(t, "malformed", err.Details["iban"])
}

func TestKindOf_UnwrapsWrappedAppError(t *testing.T) {
	inner := TokenExpired("expired")
	wrapped := fmt.Errorf("context: %w", inner)

	assert.Equal(t, KindTokenExpired, KindOf(wrapped))
	assert.Equal(t, KindTokenExpired, KindOf(inner))
}

func TestKindOf_PlainErrorDefaultsToInternal(t *testing.T) {
	assert.Equal(t, KindInternalError, KindOf(errors.New("plain")))
}

func TestStatusCodeOf_DefaultsTo500ForPlainError(t *testing.T) {
	assert.Equal(t, 500, StatusCodeOf(errors.New("plain")))
}

func TestStatusCodeOf_UsesAppErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusCodeOf(InputInvalid("bad")))
}

func TestAppError_IsMatchesOnKindOnly(t *testing.T) {
	a := TokenInvalid("first message")
	b := TokenInvalid("second message")
	c := TokenExpired("different kind")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestWrap_PreservesCauseAndUnwraps(t *testing.T) {
	cause := errors.New("driver failure")
	wrapped := Wrap(cause, KindInternalError, "failed to query")

	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "driver failure")
}

func TestIsInfrastructure_DetectsContextDeadline(t *testing.T) {
	assert.True(t, IsInfrastructure(context.DeadlineExceeded))
	assert.False(t, IsInfrastructure(errors.New("not infra")))
	assert.False(t, IsInfrastructure(nil))
}

func TestIsNotFound_DetectsSQLNoRows(t *testing.T) {
	assert.True(t, IsNotFound(sql.ErrNoRows))
	assert.False(t, IsNotFound(errors.New("other")))
}
