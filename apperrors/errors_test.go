package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("posting message: %w", EmptyBody("Message body is required."))

	assert.True(t, Is(err, CodeEmptyBody))
	assert.False(t, Is(err, CodeAccessDenied))
	assert.False(t, Is(errors.New("plain"), CodeEmptyBody))
}

func TestFromReturnsStatus(t *testing.T) {
	cases := map[*AppError]int{
		Unauthenticated("x"):     http.StatusUnauthorized,
		AccessDenied("x"):        http.StatusForbidden,
		InvalidRecipient("x"):    http.StatusBadRequest,
		InsufficientMembers("x"): http.StatusBadRequest,
		ProfileIncomplete("x"):   http.StatusForbidden,
		NotFound("User", nil):    http.StatusNotFound,
		Conflict("x"):            http.StatusConflict,
		Internal("x", nil):       http.StatusInternalServerError,
	}
	for appErr, status := range cases {
		got, ok := From(fmt.Errorf("wrapped: %w", appErr))
		if assert.True(t, ok, appErr.Code) {
			assert.Equal(t, status, got.Status, appErr.Code)
		}
	}
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("Server error", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Server error", err.Message)
}
