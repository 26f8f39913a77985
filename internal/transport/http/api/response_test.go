package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"hrleave/internal/domain/errs"
)

func TestWriteErrorStatus(t *testing.T) {
	fields := &errs.Fields{}
	fields.Add("to", "must be on or after from")

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"fields", fields.Err(), http.StatusBadRequest, "validation_error"},
		{"validation", errs.Validation("bad category %q", "x"), http.StatusBadRequest, "validation_error"},
		{"unauthorized", errs.Unauthorized("invalid credentials"), http.StatusUnauthorized, "unauthorized"},
		{"forbidden", errs.Forbidden("nope"), http.StatusForbidden, "forbidden"},
		{"not found", errs.NotFound("leave request not found"), http.StatusNotFound, "not_found"},
		{"conflict", errs.Conflict("already approved"), http.StatusConflict, "conflict"},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tc.err, "req-1")
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			var env Envelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Success || env.Error == nil || env.Error.Code != tc.code || env.RequestID != "req-1" {
				t.Fatalf("unexpected envelope %+v", env)
			}
		})
	}
}

func TestWriteErrorHidesInternalMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pq: password authentication failed"), "")
	var env Envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Error.Message != "internal server error" {
		t.Fatalf("leaked message %q", env.Error.Message)
	}
}

func TestWriteErrorStripsSentinel(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errs.NotFound("employee not found"), "")
	var env Envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Error.Message != "employee not found" {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}
}
