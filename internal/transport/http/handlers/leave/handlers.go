package leavehandler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/errs"
	"hrleave/internal/domain/leave"
	"hrleave/internal/platform/storage"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Attachment kinds accepted by the upload endpoint.
const (
	KindAttachment  = "attachment"
	KindCertificate = "certificate"
)

type Handler struct {
	Service        *leave.Service
	Uploads        storage.Uploader
	UploadMaxBytes int64
}

func NewHandler(service *leave.Service, uploads storage.Uploader, uploadMax int64) *Handler {
	return &Handler{Service: service, Uploads: uploads, UploadMaxBytes: uploadMax}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/calendar", h.handleCalendar)
		r.Get("/calendar/working-days", h.handleWorkingDays)
		r.Get("/requests", h.handleListRequests)
		r.Post("/requests", h.handleCreateRequest)
		r.Get("/requests/{requestID}", h.handleGetRequest)
		r.Patch("/requests/{requestID}", h.handleUpdateRequest)
		r.Delete("/requests/{requestID}", h.handleDeleteRequest)
		r.Post("/requests/{requestID}/approve", h.handleApproveRequest)
		r.Post("/requests/{requestID}/reject", h.handleRejectRequest)
		r.Post("/requests/{requestID}/cancel", h.handleCancelRequest)
		r.Post("/requests/{requestID}/comments", h.handleComment)
		r.Post("/requests/{requestID}/attachments", h.handleUploadAttachment)
	})
}

type createRequest struct {
	EmployeeID        string `json:"employeeId"`
	Category          string `json:"category"`
	From              string `json:"from"`
	To                string `json:"to"`
	IsHalfDay         bool   `json:"isHalfDay"`
	HalfDayPeriod     string `json:"halfDayPeriod"`
	Reason            string `json:"reason"`
	Replacement       string `json:"replacement"`
	EmergencyContact  string `json:"emergencyContact"`
	AttachmentURL     string `json:"attachmentUrl"`
	DoctorCertificate string `json:"doctorCertificate"`
	Priority          string `json:"priority"`
}

type patchRequest struct {
	Category          *string `json:"category"`
	From              *string `json:"from"`
	To                *string `json:"to"`
	IsHalfDay         *bool   `json:"isHalfDay"`
	HalfDayPeriod     *string `json:"halfDayPeriod"`
	Reason            *string `json:"reason"`
	Replacement       *string `json:"replacement"`
	EmergencyContact  *string `json:"emergencyContact"`
	AttachmentURL     *string `json:"attachmentUrl"`
	DoctorCertificate *string `json:"doctorCertificate"`
	Priority          *string `json:"priority"`
}

type decisionRequest struct {
	Comment string `json:"comment"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type commentRequest struct {
	Text string `json:"text"`
}

// parseOptionalDate leaves empty values zero so the service reports them
// as required alongside its other checks.
func parseOptionalDate(v *shared.Validator, field, raw string) time.Time {
	parsed, err := shared.ParseDate(raw)
	if err != nil {
		v.Add(field, "must be a valid date in YYYY-MM-DD format")
	}
	return parsed
}

func lower(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload createRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	from := parseOptionalDate(v, "from", payload.From)
	to := parseOptionalDate(v, "to", payload.To)
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Service.Submit(r.Context(), leave.Submission{
		EmployeeID:        payload.EmployeeID,
		Category:          leave.Category(lower(payload.Category)),
		From:              from,
		To:                to,
		IsHalfDay:         payload.IsHalfDay,
		HalfDayPeriod:     leave.HalfDayPeriod(lower(payload.HalfDayPeriod)),
		Reason:            payload.Reason,
		Replacement:       payload.Replacement,
		EmergencyContact:  payload.EmergencyContact,
		AttachmentURL:     payload.AttachmentURL,
		DoctorCertificate: payload.DoctorCertificate,
		Priority:          leave.Priority(lower(payload.Priority)),
	})
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Created(w, created, reqID)
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	page, err := shared.ParsePagination(r, defaultPageSize, maxPageSize)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	query := r.URL.Query()
	v := shared.NewValidator()
	filter := leave.Filter{
		EmployeeID: strings.TrimSpace(query.Get("employeeId")),
		Status:     leave.Status(v.Enum("status", query.Get("status"), shared.Strings(leave.Statuses))),
		Category:   leave.Category(v.Enum("category", query.Get("category"), shared.Strings(leave.Categories))),
		FromStart:  v.OptionalDate("from", query.Get("from")),
		Ascending:  lower(query.Get("order")) == "asc",
		Limit:      page.Limit,
		Offset:     page.Offset,
	}
	if to := v.OptionalDate("to", query.Get("to")); to != nil {
		if filter.FromStart != nil {
			v.DateOrder("from", *filter.FromStart, "to", *to)
		}
		end := to.AddDate(0, 0, 1)
		filter.FromEnd = &end
	}
	if v.Reject(w, reqID) {
		return
	}

	result, err := h.Service.List(r.Context(), filter)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(result.Total))
	api.Success(w, shared.Page[leave.Request]{Items: result.Requests, Total: result.Total, Pagination: page}, reqID)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	req, err := h.Service.Get(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Success(w, req, reqID)
}

func (h *Handler) handleUpdateRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload patchRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	patch := leave.Patch{
		IsHalfDay:         payload.IsHalfDay,
		Reason:            payload.Reason,
		Replacement:       payload.Replacement,
		EmergencyContact:  payload.EmergencyContact,
		AttachmentURL:     payload.AttachmentURL,
		DoctorCertificate: payload.DoctorCertificate,
	}
	if payload.Category != nil {
		category := leave.Category(lower(*payload.Category))
		patch.Category = &category
	}
	if payload.Priority != nil {
		priority := leave.Priority(lower(*payload.Priority))
		patch.Priority = &priority
	}
	if payload.HalfDayPeriod != nil {
		period := leave.HalfDayPeriod(lower(*payload.HalfDayPeriod))
		patch.HalfDayPeriod = &period
	}
	if payload.From != nil {
		if from, ok := v.Date("from", *payload.From); ok {
			patch.From = &from
		}
	}
	if payload.To != nil {
		if to, ok := v.Date("to", *payload.To); ok {
			patch.To = &to
		}
	}
	if v.Reject(w, reqID) {
		return
	}

	updated, err := h.Service.Update(r.Context(), chi.URLParam(r, "requestID"), patch)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Success(w, updated, reqID)
}

func (h *Handler) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "requestID")
	if err := h.Service.Delete(r.Context(), id); err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Approve)
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.Service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id, comment string) (leave.Request, error)) {
	reqID := middleware.GetRequestID(r.Context())
	var payload decisionRequest
	if !shared.DecodeOptionalJSON(w, r, &payload, reqID) {
		return
	}
	updated, err := apply(r.Context(), chi.URLParam(r, "requestID"), payload.Comment)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Success(w, updated, reqID)
}

func (h *Handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload cancelRequest
	if !shared.DecodeOptionalJSON(w, r, &payload, reqID) {
		return
	}
	updated, err := h.Service.Cancel(r.Context(), chi.URLParam(r, "requestID"), payload.Reason)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Success(w, updated, reqID)
}

func (h *Handler) handleComment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload commentRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	updated, err := h.Service.Comment(r.Context(), chi.URLParam(r, "requestID"), payload.Text)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Created(w, updated, reqID)
}

// handleUploadAttachment stores the file and records its URL on the pending
// request, as the attachment or, with kind=certificate, the doctor's note.
func (h *Handler) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "requestID")
	current, err := h.Service.Get(r.Context(), id)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	// Nothing is stored unless the caller could record it afterwards.
	caller, _ := middleware.GetCaller(r)
	if err := auth.Authorize(caller, auth.ActionLeaveUpdate, auth.Resource{OwnerID: current.EmployeeID}); err != nil {
		api.WriteError(w, err, reqID)
		return
	}

	data, err := shared.ReadUpload(r, h.UploadMaxBytes)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	kind := lower(r.FormValue("kind"))
	if kind == "" {
		kind = KindAttachment
	}
	if kind != KindAttachment && kind != KindCertificate {
		api.WriteError(w, errs.Validation("kind must be %s or %s", KindAttachment, KindCertificate), reqID)
		return
	}
	if current.Status.Terminal() {
		api.WriteError(w, errs.Conflict("only pending requests can be updated"), reqID)
		return
	}

	obj, err := storage.NewObject("leave/"+current.EmployeeID+"/"+current.ID, data)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	url, err := h.Uploads.Put(r.Context(), obj)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	patch := leave.Patch{AttachmentURL: &url}
	if kind == KindCertificate {
		patch = leave.Patch{DoctorCertificate: &url}
	}
	updated, err := h.Service.Update(r.Context(), id, patch)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Created(w, updated, reqID)
}

func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	cal := h.Service.Calendar
	api.Success(w, map[string]any{
		"weekly":   cal.Weekly(),
		"holidays": cal.Holidays(),
	}, middleware.GetRequestID(r.Context()))
}

// handleWorkingDays previews the totalDays a submission would get.
func (h *Handler) handleWorkingDays(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()
	v := shared.NewValidator()
	from, _ := v.Date("from", query.Get("from"))
	to, _ := v.Date("to", query.Get("to"))
	v.DateOrder("from", from, "to", to)
	if v.Reject(w, reqID) {
		return
	}
	halfDay := lower(query.Get("halfDay")) == "true"
	days, err := leave.RequestDays(h.Service.Calendar, from, to, halfDay)
	if err != nil {
		api.WriteError(w, errs.Validation("%s", err.Error()), reqID)
		return
	}
	api.Success(w, map[string]any{
		"from":      from.Format(leave.DateLayout),
		"to":        to.Format(leave.DateLayout),
		"isHalfDay": halfDay,
		"totalDays": days,
	}, reqID)
}
