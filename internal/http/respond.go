package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"cartshare/internal/cart"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// mapStoreError converts cart store errors to HTTP responses.
func mapStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrCartNotFound):
		respondError(w, http.StatusNotFound, "cart_not_found", "cart not found")
	case errors.Is(err, cart.ErrNoCartSelected):
		respondError(w, http.StatusConflict, "no_cart_selected", "no cart selected")
	case errors.Is(err, cart.ErrNotInitialized):
		respondError(w, http.StatusServiceUnavailable, "session_not_ready", "session not initialized")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
