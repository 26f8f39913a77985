package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Unauthorized(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

func Forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// Message strips the sentinel prefix so callers can show the reason alone.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, sentinel := range []error{ErrValidation, ErrUnauthorized, ErrForbidden, ErrNotFound, ErrConflict} {
		prefix := sentinel.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Fields accumulates per-field validation issues. It matches ErrValidation.
type Fields struct {
	issues []FieldIssue
}

func (f *Fields) Add(field, reason string) {
	f.issues = append(f.issues, FieldIssue{Field: field, Reason: reason})
}

func (f *Fields) Empty() bool {
	return f == nil || len(f.issues) == 0
}

func (f *Fields) Issues() []FieldIssue {
	if f.Empty() {
		return nil
	}
	out := make([]FieldIssue, len(f.issues))
	copy(out, f.issues)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Field < out[j].Field
	})
	return out
}

// Err returns nil when no issue was recorded.
func (f *Fields) Err() error {
	if f.Empty() {
		return nil
	}
	return f
}

func (f *Fields) Error() string {
	parts := make([]string, 0, len(f.issues))
	for _, issue := range f.issues {
		parts = append(parts, issue.Field+" "+issue.Reason)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (f *Fields) Unwrap() error {
	return ErrValidation
}
