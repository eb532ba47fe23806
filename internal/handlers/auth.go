package handlers

import (
	"net/http"

	"github.com/snappy-loop/shadowtwin/internal/models"
)

// SignUp handles POST /auth/signup
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.auth.SignUp(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "sign up")
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// SignIn handles POST /auth/signin
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.auth.SignIn(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "sign in")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Session handles GET /v1/session
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	user, err := h.auth.CurrentUser(r.Context(), userID)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
