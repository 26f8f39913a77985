package reportshandler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hrleave/internal/domain/leave"
	"hrleave/internal/domain/reports"
	"hrleave/internal/platform/export"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

type Handler struct {
	Reports  *reports.Service
	Location *time.Location
}

func NewHandler(svc *reports.Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{Reports: svc, Location: loc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/leave", h.handleLeaveReport)
	})
}

func (h *Handler) handleLeaveReport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()

	format, err := export.ParseFormat(query.Get("format"))
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	kind, err := reports.ParseRange(query.Get("range"))
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	v := shared.NewValidator()
	q := reports.Query{
		EmployeeID: strings.TrimSpace(query.Get("employeeId")),
		Status:     leave.Status(v.Enum("status", query.Get("status"), shared.Strings(leave.Statuses))),
		Category:   leave.Category(v.Enum("category", query.Get("category"), shared.Strings(leave.Categories))),
		Range:      kind,
		From:       v.OptionalDate("from", query.Get("from")),
		To:         v.OptionalDate("to", query.Get("to")),
	}
	if v.Reject(w, reqID) {
		return
	}

	report, err := h.Reports.Leave(r.Context(), q)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	if format == export.FormatJSON {
		api.Success(w, report, reqID)
		return
	}

	generated := report.GeneratedAt.In(h.Location)
	body, err := export.Render(format, export.Table{
		Title:    "Leave Report",
		Subtitle: fmt.Sprintf("Range: %s. Generated %s. %d requests.", kind, generated.Format("2006-01-02 15:04 MST"), report.Summary.Total),
		Header:   reports.Header,
		Rows:     report.Table(),
	})
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	filename := "leave-report-" + generated.Format("20060102") + format.Extension()
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Warn("write report failed", "err", err, "requestId", reqID)
	}
}
