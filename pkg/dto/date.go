package dto

import (
	"fmt"
	"strings"
	"time"

	"anoa.com/volunteergoals/pkg/apperror"
)

const DateLayout = "2006-01-02"

// ParseDate accepts RFC3339 timestamps and plain YYYY-MM-DD dates (UTC midnight).
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC3339: %w", value, apperror.ErrInvalidInput)
}

// ParseOptionalDate is ParseDate for optional query values; empty yields nil.
func ParseOptionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
