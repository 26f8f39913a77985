package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"hrleave/internal/domain/errs"
	"hrleave/internal/transport/http/api"
)

// Validator collects request-shape problems before anything reaches a
// service. Its Err is an *errs.Fields, so api.WriteError renders the list.
type Validator struct {
	fields errs.Fields
}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Add(field, reason string) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}
	v.fields.Add(strings.TrimSpace(field), reason)
}

func (v *Validator) Required(field, value, reason string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, reason)
	}
}

// Enum lower-cases value and reports it unless it is empty or allowed.
func (v *Validator) Enum(field, value string, allowed []string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return ""
	}
	for _, candidate := range allowed {
		if normalized == candidate {
			return normalized
		}
	}
	v.Add(field, "must be one of "+strings.Join(allowed, ", "))
	return ""
}

func (v *Validator) Date(field, raw string) (time.Time, bool) {
	parsed, err := ParseDate(raw)
	if err != nil || parsed.IsZero() {
		v.Add(field, "must be a valid date in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return parsed, true
}

// OptionalDate returns nil for an absent value.
func (v *Validator) OptionalDate(field, raw string) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parsed, ok := v.Date(field, raw)
	if !ok {
		return nil
	}
	return &parsed
}

func (v *Validator) DateOrder(startField string, start time.Time, endField string, end time.Time) {
	if start.IsZero() || end.IsZero() {
		return
	}
	if end.Before(start) {
		v.Add(endField, "must be on or after "+startField)
	}
}

func (v *Validator) HasIssues() bool {
	return !v.fields.Empty()
}

func (v *Validator) Err() error {
	return v.fields.Err()
}

func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	api.WriteError(w, v.Err(), requestID)
	return true
}

// DecodeJSON decodes the body into dst and answers 400 or 413 itself when
// it cannot.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, requestID string) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
	case errors.Is(err, io.EOF):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "request body is empty", requestID)
	default:
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
	}
	return false
}

// DecodeOptionalJSON is DecodeJSON for endpoints whose body may be omitted.
func DecodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any, requestID string) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	return DecodeJSON(w, r, dst, requestID)
}

// Strings converts typed enum values for Enum.
func Strings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
