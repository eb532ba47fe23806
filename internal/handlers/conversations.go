package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/snappy-loop/shadowtwin/internal/models"
)

// CreateConversation handles POST /v1/conversations
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	var req models.CreateConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.conversations.Start(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, err, "start conversation")
		return
	}
	writeJSON(w, http.StatusCreated, models.CreateConversationResponse{ConversationID: id})
}

// SubmitTurn handles POST /v1/conversations/{id}/turns
func (h *Handler) SubmitTurn(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	convID, ok := conversationID(w, r)
	if !ok {
		return
	}
	var req models.SubmitTurnRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	turn, err := h.conversations.Submit(r.Context(), userID, convID, req.Text)
	if err != nil {
		writeServiceError(w, err, "submit turn")
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

// GetConversation handles GET /v1/conversations/{id}
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	convID, ok := conversationID(w, r)
	if !ok {
		return
	}
	turns, err := h.conversations.Transcript(userID, convID)
	if err != nil {
		writeServiceError(w, err, "get conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversation_id": convID,
		"turns":           turns,
	})
}

// DeleteConversation handles DELETE /v1/conversations/{id}
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	convID, ok := conversationID(w, r)
	if !ok {
		return
	}
	if err := h.conversations.End(userID, convID); err != nil {
		writeServiceError(w, err, "end conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func conversationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid conversation id")
		return uuid.Nil, false
	}
	return id, true
}
