package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"cartshare/internal/roles"
	"cartshare/pkg/logger"
)

type RolesHandler struct {
	service  *roles.Service
	validate *validator.Validate
	logg     *logger.Logger
	timeout  time.Duration
}

func NewRolesHandler(service *roles.Service, logg *logger.Logger, timeout time.Duration) *RolesHandler {
	return &RolesHandler{
		service:  service,
		validate: validator.New(),
		logg:     logg,
		timeout:  timeout,
	}
}

type UpdateRoleRequestDTO struct {
	Role string `json:"role" validate:"required,oneof=pending user admin"`
}

type ShareCandidateDTO struct {
	UserID string `json:"uid"`
	Name   string `json:"name"`
}

// ListUsers returns the users a cart can be shared with.
func (h *RolesHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	candidates, err := h.service.ShareCandidates(ctx, user.UID)
	if err != nil {
		h.logg.Error(r.Context(), "failed to list share candidates", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list users")
		return
	}

	out := make([]ShareCandidateDTO, len(candidates))
	for i, c := range candidates {
		out[i] = ShareCandidateDTO{UserID: c.UserID, Name: c.Name}
	}
	respondJSON(w, http.StatusOK, out)
}

// UpdateRole changes a user's role. Admin only.
func (h *RolesHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	targetUID := chi.URLParam(r, "uid")
	if targetUID == "" {
		respondError(w, http.StatusBadRequest, "invalid_uid", "user id is required")
		return
	}

	var req UpdateRoleRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_role", "role must be one of pending, user, admin")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.service.UpdateRole(ctx, *actor, targetUID, req.Role); err != nil {
		if errors.Is(err, roles.ErrForbidden) {
			respondError(w, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		h.logg.Error(r.Context(), "failed to update role", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update role")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
