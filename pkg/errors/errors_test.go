package errors

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		code      int
		want      ErrorType
		retryable bool
	}{
		{0, ErrorTypeNetwork, true},
		{http.StatusTooManyRequests, ErrorTypeRateLimit, true},
		{http.StatusUnauthorized, ErrorTypeAuth, false},
		{http.StatusForbidden, ErrorTypeAuth, false},
		{http.StatusNotFound, ErrorTypeNotFound, false},
		{http.StatusBadGateway, ErrorTypeServerError, true},
		{http.StatusBadRequest, ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			err := FromStatus(tt.code, "boom")
			assert.Equal(t, tt.want, err.Type)
			assert.Equal(t, tt.retryable, IsRetryable(err.Type))
			assert.Equal(t, tt.retryable, IsRetryableStatusCode(tt.code))
		})
	}
}

func TestPhaseErrorUnwrap(t *testing.T) {
	err := &PhaseError{Phase: "followers", Err: context.DeadlineExceeded}

	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "followers")

	var pe *PhaseError
	assert.True(t, stderrors.As(stderrors.Join(stderrors.New("other"), err), &pe))
	assert.Equal(t, "followers", pe.Phase)
}
