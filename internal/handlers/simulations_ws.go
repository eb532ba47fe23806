package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/shadowtwin/internal/models"
)

const (
	simulationsWSReadLimit = 64 << 10
	simulationsWSIdle      = 30 * time.Minute
)

var simulationsWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// simulationsWSInMessage is the JSON shape sent from the client.
type simulationsWSInMessage struct {
	Type  string                 `json:"type"`
	Input models.SimulationInput `json:"input"`
}

// simulationsWSOutMessage is the JSON shape sent to the client: zero or more "event"
// messages followed by one "result" per run.
type simulationsWSOutMessage struct {
	Type       string             `json:"type"`
	Event      *models.StageEvent `json:"event,omitempty"`
	Simulation *models.Simulation `json:"simulation,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// SimulationsWS handles GET /v1/simulations/ws. Each {"type":"run"} message starts one
// simulation whose stage events stream back as they resolve.
func (h *Handler) SimulationsWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	conn, err := simulationsWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("simulations ws upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(simulationsWSReadLimit)
	conn.SetReadDeadline(time.Now().Add(simulationsWSIdle))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(simulationsWSIdle))
		return nil
	})

	var writeMu sync.Mutex
	send := func(msg simulationsWSOutMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return writeWSJSON(conn, msg)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			log.Debug().Err(err).Msg("simulations ws read")
			return
		}
		conn.SetReadDeadline(time.Now().Add(simulationsWSIdle))

		var in simulationsWSInMessage
		if err := json.Unmarshal(raw, &in); err != nil {
			_ = send(simulationsWSOutMessage{Type: "result", Error: "invalid JSON: " + err.Error()})
			continue
		}
		if in.Type != "run" {
			_ = send(simulationsWSOutMessage{Type: "result", Error: "expected type: run"})
			continue
		}

		sim, runErr := h.simulations.Create(r.Context(), userID, in.Input, func(e models.StageEvent) {
			if err := send(simulationsWSOutMessage{Type: "event", Event: &e}); err != nil {
				log.Debug().Err(err).Msg("simulations ws event write")
			}
		})
		out := simulationsWSOutMessage{Type: "result", Simulation: sim}
		if runErr != nil {
			out.Error = runErr.Error()
		}
		if err := send(out); err != nil {
			log.Debug().Err(err).Msg("simulations ws write")
			return
		}
	}
}

func writeWSJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	return conn.WriteJSON(v)
}
