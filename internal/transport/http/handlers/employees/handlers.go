package employeehandler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/employee"
	"hrleave/internal/platform/jobs"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type Handler struct {
	Employees *employee.Service
	Jobs      *jobs.Service
}

func NewHandler(employees *employee.Service, jobRunner *jobs.Service) *Handler {
	return &Handler{Employees: employees, Jobs: jobRunner}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/directory", h.handleDirectory)
		r.With(middleware.RequireRoles(auth.RoleAdmin, auth.RoleMD)).Post("/balances/reset", h.handleResetBalances)
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{employeeID}", h.handleGet)
		r.Patch("/{employeeID}", h.handleUpdate)
		r.Delete("/{employeeID}", h.handleDelete)
	})
}

// patchRequest mirrors employee.Patch with wire types; absent keys stay nil.
type patchRequest struct {
	Email            *string                                  `json:"email"`
	Name             *string                                  `json:"name"`
	Role             *string                                  `json:"role"`
	EmployeeCode     *string                                  `json:"employeeId"`
	Designation      *string                                  `json:"designation"`
	JoinedDate       *string                                  `json:"joinedDate"`
	NationalID       *string                                  `json:"nationalId"`
	Nationality      *string                                  `json:"nationality"`
	PresentAddress   *string                                  `json:"presentAddress"`
	PermanentAddress *string                                  `json:"permanentAddress"`
	EmergencyContact *string                                  `json:"emergencyContact"`
	Salary           *float64                                 `json:"salary"`
	ImageURL         *string                                  `json:"imageUrl"`
	Balances         map[employee.BalanceKey]employee.Counter `json:"balances"`
}

func (p patchRequest) toPatch(v *shared.Validator) employee.Patch {
	patch := employee.Patch{
		Email:            p.Email,
		Name:             p.Name,
		EmployeeCode:     p.EmployeeCode,
		Designation:      p.Designation,
		NationalID:       p.NationalID,
		Nationality:      p.Nationality,
		PresentAddress:   p.PresentAddress,
		PermanentAddress: p.PermanentAddress,
		EmergencyContact: p.EmergencyContact,
		Salary:           p.Salary,
		ImageURL:         p.ImageURL,
		Balances:         p.Balances,
	}
	if p.Role != nil {
		role, err := auth.ParseRole(*p.Role)
		if err != nil {
			v.Add("role", "must be one of employee, admin, md")
		} else {
			patch.Role = &role
		}
	}
	if p.JoinedDate != nil {
		if joined, ok := v.Date("joinedDate", *p.JoinedDate); ok {
			patch.JoinedDate = &joined
		}
	}
	return patch
}

type createRequest struct {
	employee.NewEmployee
	Role       string `json:"role"`
	JoinedDate string `json:"joinedDate"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	page, err := shared.ParsePagination(r, defaultPageSize, maxPageSize)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	filter := employee.ListFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, err := auth.ParseRole(raw)
		if err != nil {
			api.WriteError(w, err, reqID)
			return
		}
		filter.Role = role
	}
	result, err := h.Employees.List(r.Context(), filter)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(result.Total))
	api.Success(w, shared.Page[employee.Employee]{Items: result.Employees, Total: result.Total, Pagination: page}, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload createRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	input := payload.NewEmployee
	v := shared.NewValidator()
	if payload.Role != "" {
		role, err := auth.ParseRole(payload.Role)
		if err != nil {
			v.Add("role", "must be one of employee, admin, md")
		}
		input.Role = role
	}
	if payload.JoinedDate != "" {
		if joined, ok := v.Date("joinedDate", payload.JoinedDate); ok {
			input.JoinedDate = &joined
		}
	}
	if v.Reject(w, reqID) {
		return
	}
	emp, err := h.Employees.Create(r.Context(), input)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Created(w, emp, reqID)
}

func (h *Handler) handleDirectory(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	entries, err := h.Employees.Directory(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Success(w, entries, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	emp, err := h.Employees.Get(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Success(w, emp, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload patchRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	patch := payload.toPatch(v)
	if v.Reject(w, reqID) {
		return
	}
	emp, err := h.Employees.Update(r.Context(), chi.URLParam(r, "employeeID"), patch)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Success(w, emp, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "employeeID")
	if err := h.Employees.Delete(r.Context(), id); err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) handleResetBalances(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var n int
	reset := func(ctx context.Context) (any, error) {
		var err error
		n, err = h.Employees.ResetBalances(ctx)
		return map[string]any{"employeesUpdated": n}, err
	}
	var err error
	if h.Jobs != nil {
		_, err = h.Jobs.RunNow(r.Context(), jobs.JobBalanceReset, reset)
	} else {
		_, err = reset(r.Context())
	}
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Success(w, map[string]any{"employeesUpdated": n, "resetAt": time.Now().UTC()}, reqID)
}
