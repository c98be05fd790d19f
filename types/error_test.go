package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrServiceUnavailable, "catalog unreachable").
		WithCause(root).
		WithRetryable(true)

	assert.Equal(t, ErrServiceUnavailable, GetErrorCode(err))
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, root)
	assert.Equal(t, "[SERVICE_UNAVAILABLE] catalog unreachable: root", err.Error())
	assert.Equal(t, http.StatusServiceUnavailable, err.Status())

	err.WithHTTPStatus(http.StatusBadGateway)
	assert.Equal(t, http.StatusBadGateway, err.Status())
}

func TestAsError_Wrapped(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("handler: %w", NewError(ErrNotFound, "agent not found"))
	e, ok := AsError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrNotFound, e.Code)
	assert.Equal(t, ErrNotFound, GetErrorCode(wrapped))
	assert.False(t, IsRetryable(wrapped))

	_, ok = AsError(errors.New("plain"))
	assert.False(t, ok)
	assert.Empty(t, GetErrorCode(nil))
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	t.Parallel()

	tests := map[ErrorCode]int{
		ErrInvalidRequest:     http.StatusBadRequest,
		ErrNotFound:           http.StatusNotFound,
		ErrMethodNotAllowed:   http.StatusMethodNotAllowed,
		ErrUnauthorized:       http.StatusUnauthorized,
		ErrForbidden:          http.StatusForbidden,
		ErrRateLimited:        http.StatusTooManyRequests,
		ErrTimeout:            http.StatusGatewayTimeout,
		ErrServiceUnavailable: http.StatusServiceUnavailable,
		ErrInternalError:      http.StatusInternalServerError,
		ErrorCode("UNKNOWN"):  http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, code.HTTPStatus(), string(code))
	}
}
