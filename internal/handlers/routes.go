package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Router registers every route. requireUser guards the /v1 subrouter.
func (h *Handler) Router(requireUser mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/auth/signup", h.SignUp).Methods(http.MethodPost)
	r.HandleFunc("/auth/signin", h.SignIn).Methods(http.MethodPost)

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(requireUser)
	api.HandleFunc("/session", h.Session).Methods(http.MethodGet)
	api.HandleFunc("/profile", h.GetProfile).Methods(http.MethodGet)
	api.HandleFunc("/profile", h.UpdateProfile).Methods(http.MethodPut)
	api.HandleFunc("/profile/avatar", h.UploadProfileAvatar).Methods(http.MethodPost)
	// ws is registered before {id} so it is not parsed as a simulation id
	api.HandleFunc("/simulations/ws", h.SimulationsWS).Methods(http.MethodGet)
	api.HandleFunc("/simulations", h.CreateSimulation).Methods(http.MethodPost)
	api.HandleFunc("/simulations", h.ListSimulations).Methods(http.MethodGet)
	api.HandleFunc("/simulations/{id}", h.GetSimulation).Methods(http.MethodGet)
	api.HandleFunc("/simulations/{id}/avatar", h.GenerateAvatarVideo).Methods(http.MethodPost)
	api.HandleFunc("/conversations", h.CreateConversation).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}", h.GetConversation).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}", h.DeleteConversation).Methods(http.MethodDelete)
	api.HandleFunc("/conversations/{id}/turns", h.SubmitTurn).Methods(http.MethodPost)
	return r
}
