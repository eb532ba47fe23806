package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/shadowtwin/internal/auth"
	"github.com/snappy-loop/shadowtwin/internal/avatar"
	"github.com/snappy-loop/shadowtwin/internal/database"
	"github.com/snappy-loop/shadowtwin/internal/models"
	"github.com/snappy-loop/shadowtwin/internal/pipeline"
	"github.com/snappy-loop/shadowtwin/internal/quota"
	"github.com/snappy-loop/shadowtwin/internal/services"
)

const maxJSONBody = 1 << 20 // 1MB

// authService is the subset of auth.Service used by handlers.
type authService interface {
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error)
	SignIn(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error)
	CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// simulationService is the subset of services.SimulationService used by handlers.
type simulationService interface {
	Create(ctx context.Context, userID uuid.UUID, in models.SimulationInput, progress pipeline.ProgressFunc) (*models.Simulation, error)
	GenerateAvatar(ctx context.Context, userID, simulationID uuid.UUID, image []byte) (string, error)
	Get(ctx context.Context, userID, simulationID uuid.UUID) (*models.Simulation, error)
	List(ctx context.Context, userID uuid.UUID, limit int, cursor *time.Time) (*services.SimulationPage, error)
}

// profileService is the subset of services.ProfileService used by handlers.
type profileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, req *models.UpdateProfileRequest) (*models.Profile, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, image []byte) (*models.Profile, error)
}

// conversationService is the subset of services.ConversationService used by handlers.
type conversationService interface {
	Start(ctx context.Context, userID uuid.UUID, req *models.CreateConversationRequest) (uuid.UUID, error)
	Submit(ctx context.Context, userID, conversationID uuid.UUID, text string) (models.ConversationTurn, error)
	Transcript(userID, conversationID uuid.UUID) ([]models.ConversationTurn, error)
	End(userID, conversationID uuid.UUID) error
}

// healthChecker reports whether a backing store is reachable.
type healthChecker interface {
	Health(ctx context.Context) error
}

// Handler contains all HTTP handlers
type Handler struct {
	auth          authService
	simulations   simulationService
	profiles      profileService
	conversations conversationService
	health        healthChecker
	maxUpload     int64
}

// NewHandler creates a new handler. health may be nil.
func NewHandler(
	authSvc authService,
	simulations simulationService,
	profiles profileService,
	conversations conversationService,
	health healthChecker,
	maxUpload int64,
) *Handler {
	return &Handler{
		auth:          authSvc,
		simulations:   simulations,
		profiles:      profiles,
		conversations: conversations,
		health:        health,
		maxUpload:     maxUpload,
	}
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Health(ctx); err != nil {
			log.Warn().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// statusFor maps service and vendor errors onto HTTP status codes.
func statusFor(err error) int {
	var imgErr *pipeline.ImageError
	var avErr *avatar.Error
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidInput), errors.As(err, &imgErr),
		errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidEmail):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, database.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, quota.ErrExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, pipeline.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.As(err, &avErr):
		if avErr.Kind == avatar.KindPollTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes err with its mapped status; internal errors are logged and hidden.
func writeServiceError(w http.ResponseWriter, err error, action string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Failed to " + action)
		writeJSONError(w, status, "failed to "+action)
		return
	}
	log.Debug().Err(err).Int("status", status).Msg("Request rejected")
	writeJSONError(w, status, err.Error())
}

func userFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
