package apperror

import (
	"errors"
	"net/http"

	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("resource already exists")
	ErrBadRequest        = errors.New("bad request")
	ErrInvalidInput      = errors.New("invalid input")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// statusFor is checked in order; the first sentinel found in the chain wins.
var statusFor = []struct {
	target error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrConflict, http.StatusConflict},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrBadRequest, http.StatusBadRequest},
	{ErrRateLimitExceeded, http.StatusTooManyRequests},
	// Repository errors that reach a handler without being wrapped.
	{gorm.ErrRecordNotFound, http.StatusNotFound},
	{gorm.ErrDuplicatedKey, http.StatusConflict},
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	for _, m := range statusFor {
		if errors.Is(err, m.target) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}
