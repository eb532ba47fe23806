package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/snappy-loop/shadowtwin/internal/models"
)

// CreateSimulation handles POST /v1/simulations
func (h *Handler) CreateSimulation(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	var in models.SimulationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	sim, err := h.simulations.Create(r.Context(), userID, in, nil)
	if err != nil {
		writeServiceError(w, err, "create simulation")
		return
	}
	writeJSON(w, http.StatusCreated, sim)
}

// GetSimulation handles GET /v1/simulations/{id}
func (h *Handler) GetSimulation(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	simID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid simulation id")
		return
	}
	sim, err := h.simulations.Get(r.Context(), userID, simID)
	if err != nil {
		writeServiceError(w, err, "get simulation")
		return
	}
	writeJSON(w, http.StatusOK, sim)
}

// ListSimulations handles GET /v1/simulations
func (h *Handler) ListSimulations(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	// Parse query parameters
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil {
			limit = parsedLimit
		}
	}
	var cursor *time.Time
	if cursorStr := r.URL.Query().Get("cursor"); cursorStr != "" {
		if parsedCursor, err := time.Parse(time.RFC3339Nano, cursorStr); err == nil {
			cursor = &parsedCursor
		}
	}

	page, err := h.simulations.List(r.Context(), userID, limit, cursor)
	if err != nil {
		writeServiceError(w, err, "list simulations")
		return
	}
	sims := page.Simulations
	if sims == nil {
		sims = []*models.Simulation{}
	}
	resp := map[string]interface{}{"simulations": sims}
	if page.NextCursor != nil {
		resp["next_cursor"] = page.NextCursor.Format(time.RFC3339Nano)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GenerateAvatarVideo handles POST /v1/simulations/{id}/avatar (optional multipart field: image)
func (h *Handler) GenerateAvatarVideo(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	simID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid simulation id")
		return
	}
	image, ok := h.readImage(w, r, false)
	if !ok {
		return
	}
	url, err := h.simulations.GenerateAvatar(r.Context(), userID, simID, image)
	if err != nil {
		writeServiceError(w, err, "generate avatar video")
		return
	}
	writeJSON(w, http.StatusOK, models.AvatarVideoResponse{VideoURL: url})
}
