package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dreamhouse-erp/dreamhouse-erp/internal/platform/httpx"
)

// Handler exposes account management endpoints.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	production bool
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service, production bool) *Handler {
	return &Handler{logger: logger, service: service, production: production}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/users", h.list)
	r.Post("/users", h.create)
	r.Get("/users/{id}", h.get)
	r.Put("/users/{id}", h.update)
	r.Post("/users/{id}/resetPassword", h.resetPassword)
	r.Delete("/users/{id}", h.delete)
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err, h.production)
		return
	}
	httpx.OK(w, "", accounts)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), pathID(r))
	if err != nil {
		httpx.RespondError(w, err, h.production)
		return
	}
	httpx.OK(w, "", user)
}

type createUserPayload struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	RoleID int64  `json:"role_id"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var payload createUserPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid user payload"})
		return
	}
	user, err := h.service.CreateUser(r.Context(), CreateInput(payload))
	if err != nil {
		h.logger.Error("create user", slog.Any("error", err))
		httpx.RespondError(w, err, h.production)
		return
	}
	httpx.Created(w, "user created, temporary password sent by email", user)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var user User
	if err := httpx.DecodeJSON(r, &user); err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Message: "invalid user payload"})
		return
	}
	user.ID = pathID(r)
	if err := h.service.UpdateUser(r.Context(), user); err != nil {
		h.logger.Error("update user", slog.Any("error", err))
		httpx.RespondError(w, err, h.production)
		return
	}
	httpx.OK(w, "user updated", user)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetPassword(r.Context(), pathID(r)); err != nil {
		h.logger.Error("reset password", slog.Any("error", err))
		httpx.RespondError(w, err, h.production)
		return
	}
	httpx.OK(w, "temporary password sent by email", nil)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), pathID(r)); err != nil {
		httpx.RespondError(w, err, h.production)
		return
	}
	httpx.OK(w, "user deleted", nil)
}
