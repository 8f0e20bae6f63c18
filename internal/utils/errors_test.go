package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorToHTTPStatus(t *testing.T) {
	cases := map[string]int{
		ErrNotFound:           http.StatusNotFound,
		ErrUserNotFound:       http.StatusNotFound,
		ErrInvalidInput:       http.StatusBadRequest,
		ErrDuplicateVote:      http.StatusBadRequest,
		ErrDuplicateEmail:     http.StatusBadRequest,
		ErrAlreadyArchived:    http.StatusBadRequest,
		ErrInvalidCredentials: http.StatusBadRequest,
		ErrUnauthorized:       http.StatusUnauthorized,
		ErrInvalidToken:       http.StatusUnauthorized,
		ErrForbidden:          http.StatusForbidden,
		ErrTooManyRequests:    http.StatusTooManyRequests,
		ErrUnexpected:         http.StatusInternalServerError,
		"SOMETHING_ELSE":      http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, AppErrorToHTTPStatus(code), code)
	}
}

func TestIsErrorCodeThroughWrapping(t *testing.T) {
	base := NewAppError(ErrDuplicateVote, "already upvoted", nil)
	wrapped := fmt.Errorf("vote post: %w", base)

	assert.True(t, IsErrorCode(wrapped, ErrDuplicateVote))
	assert.False(t, IsErrorCode(wrapped, ErrNotFound))
	assert.False(t, IsErrorCode(errors.New("plain"), ErrNotFound))
}

func TestAppErrorUnwrapsOrigin(t *testing.T) {
	origin := errors.New("connection reset")
	err := NewUnexpectedError("failed to save post", origin)

	assert.ErrorIs(t, err, origin)
	assert.Equal(t, "failed to save post: connection reset", err.Error())
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(NewUnauthorizedError("missing token")))
	assert.True(t, IsAuthError(NewForbiddenError("admin only")))
	assert.False(t, IsAuthError(NewNotFoundError("Post")))
}
