package shared

import (
	"strings"
	"time"

	"hrleave/internal/domain/leave"
)

// ParseDate accepts YYYY-MM-DD or RFC3339 and keeps the calendar date as
// written, dropping any time or offset.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(leave.DateLayout, value); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return leave.DateOnly(parsed), nil
}
