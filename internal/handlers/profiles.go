package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/snappy-loop/shadowtwin/internal/models"
)

const maxMultipartMemory = 32 << 20 // 32MB

// GetProfile handles GET /v1/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	p, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "get profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProfile handles PUT /v1/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.profiles.Update(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, err, "update profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UploadProfileAvatar handles POST /v1/profile/avatar (multipart/form-data, field name: image)
func (h *Handler) UploadProfileAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	image, ok := h.readImage(w, r, true)
	if !ok {
		return
	}
	p, err := h.profiles.UploadAvatar(r.Context(), userID, image)
	if err != nil {
		writeServiceError(w, err, "upload avatar")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// readImage reads the multipart image field. When required is false a request without the
// field yields a nil image.
func (h *Handler) readImage(w http.ResponseWriter, r *http.Request, required bool) ([]byte, bool) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+maxJSONBody)
	}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		if !required && errors.Is(err, http.ErrNotMultipart) {
			return nil, true
		}
		writeJSONError(w, http.StatusBadRequest, "failed to parse multipart form")
		return nil, false
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		if !required {
			return nil, true
		}
		writeJSONError(w, http.StatusBadRequest, "missing or invalid image field (use form field name: image)")
		return nil, false
	}
	defer file.Close()

	limit := h.maxUpload
	if limit <= 0 {
		limit = maxMultipartMemory
	}
	image, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read image")
		return nil, false
	}
	if int64(len(image)) > limit {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "image too large")
		return nil, false
	}
	return image, true
}
