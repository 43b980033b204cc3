package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Internal("generation failed", cause)

	assert.Equal(t, "generation failed: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "prompt is required", ValidationError("prompt is required", nil).Error())
}

func TestKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", ValidationError("bad", nil), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unauthorized", Unauthorized(""), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"not found", NotFound("history entry"), http.StatusNotFound, "NOT_FOUND"},
		{"rate limited", RateLimited(), http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{"unavailable", Unavailable("store down", nil), http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"wrapped", fmt.Errorf("lookup: %w", NotFound("history entry")), http.StatusNotFound, "NOT_FOUND"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, GetStatusCode(tt.err))
			assert.Equal(t, tt.code, KindOf(tt.err).Code())
		})
	}
}

func TestKind_OutOfRangeIsInternal(t *testing.T) {
	k := Kind(200)
	assert.Equal(t, http.StatusInternalServerError, k.Status())
	assert.Equal(t, "INTERNAL_ERROR", k.Code())
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "history entry not found", PublicMessage(NotFound("history entry")))
	assert.Equal(t, "internal error", PublicMessage(errors.New("secret detail")))
	assert.Equal(t, "Unauthorized", PublicMessage(Unauthorized("")))
}
