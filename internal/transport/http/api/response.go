package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"hrleave/internal/domain/errs"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "err", err)
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details any, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message, Details: details}, RequestID: requestID})
}

// WriteError maps domain errors onto status codes. Anything unrecognised is
// logged and reported as a bare 500 so internals never reach the client.
func WriteError(w http.ResponseWriter, err error, requestID string) {
	var fields *errs.Fields
	switch {
	case errors.As(err, &fields):
		FailWithDetails(w, http.StatusBadRequest, "validation_error", "payload validation failed",
			map[string]any{"fields": fields.Issues()}, requestID)
	case errors.Is(err, errs.ErrValidation):
		Fail(w, http.StatusBadRequest, "validation_error", errs.Message(err), requestID)
	case errors.Is(err, errs.ErrUnauthorized):
		Fail(w, http.StatusUnauthorized, "unauthorized", errs.Message(err), requestID)
	case errors.Is(err, errs.ErrForbidden):
		Fail(w, http.StatusForbidden, "forbidden", errs.Message(err), requestID)
	case errors.Is(err, errs.ErrNotFound):
		Fail(w, http.StatusNotFound, "not_found", errs.Message(err), requestID)
	case errors.Is(err, errs.ErrConflict):
		Fail(w, http.StatusConflict, "conflict", errs.Message(err), requestID)
	default:
		slog.Error("request failed", "err", err, "requestId", requestID)
		Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}
