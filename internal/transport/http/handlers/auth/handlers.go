package authhandler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/employee"
	"hrleave/internal/platform/storage"
	"hrleave/internal/transport/http/api"
	"hrleave/internal/transport/http/middleware"
	"hrleave/internal/transport/http/shared"
)

type Handler struct {
	Employees      *employee.Service
	Secret         string
	TokenTTL       time.Duration
	Uploads        storage.Uploader
	UploadMaxBytes int64
	Now            func() time.Time
}

func NewHandler(employees *employee.Service, secret string, ttl time.Duration, uploads storage.Uploader, uploadMax int64) *Handler {
	return &Handler{Employees: employees, Secret: secret, TokenTTL: ttl, Uploads: uploads, UploadMaxBytes: uploadMax, Now: time.Now}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type session struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	Employee  employee.Employee `json:"employee"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Post("/register", h.handleRegister)
	})
	r.Route("/me", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.handleMe)
		r.Put("/settings", h.handleSettings)
		r.Put("/password", h.handlePassword)
		r.Post("/image", h.handleImage)
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("email", payload.Email, "is required")
	v.Required("password", payload.Password, "is required")
	if v.Reject(w, reqID) {
		return
	}

	emp, err := h.Employees.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	out, err := h.issue(emp)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Success(w, out, reqID)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload employee.NewEmployee
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	emp, err := h.Employees.Register(r.Context(), payload)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	out, err := h.issue(emp)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Created(w, out, reqID)
}

func (h *Handler) issue(emp employee.Employee) (session, error) {
	expires := h.Now().Add(h.TokenTTL).UTC()
	token, err := auth.GenerateToken(h.Secret, auth.Claims{UserID: emp.ID, Role: emp.Role, Email: emp.Email}, h.TokenTTL)
	if err != nil {
		return session{}, err
	}
	return session{Token: token, ExpiresAt: expires, Employee: emp}, nil
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	caller, _ := middleware.GetCaller(r)
	emp, err := h.Employees.Get(r.Context(), caller.ID)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Success(w, emp, reqID)
}

func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload employee.Settings
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	emp, err := h.Employees.UpdateSettings(r.Context(), payload)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Success(w, emp, reqID)
}

func (h *Handler) handlePassword(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload passwordRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("currentPassword", payload.CurrentPassword, "is required")
	v.Required("newPassword", payload.NewPassword, "is required")
	if v.Reject(w, reqID) {
		return
	}
	if err := h.Employees.ChangePassword(r.Context(), payload.CurrentPassword, payload.NewPassword); err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Success(w, map[string]bool{"changed": true}, reqID)
}

func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	caller, _ := middleware.GetCaller(r)
	data, err := shared.ReadUpload(r, h.UploadMaxBytes)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	obj, err := storage.NewObject("profiles/"+caller.ID, data)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	url, err := h.Uploads.Put(r.Context(), obj)
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	emp, err := h.Employees.UpdateSettings(r.Context(), employee.Settings{ImageURL: &url})
	if err != nil {
		api.WriteError(w, err, reqID)
		return
	}
	api.Created(w, emp, reqID)
}
