package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/junzhij/esports-tournament-live/broadcast"
	"github.com/junzhij/esports-tournament-live/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Viewers connect from overlay pages on arbitrary hosts; the
	// channel is read-only public data, so any origin is fine.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub          *broadcast.Hub
	stateService services.StateService
	logger       *slog.Logger
}

func NewWebSocketHandler(hub *broadcast.Hub, stateService services.StateService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, stateService: stateService, logger: logger}
}

// ServeWs upgrades the connection and hands it to the hub. The init
// snapshot is queued before registration, so it is always the first
// frame and no concurrent broadcast can be observed ahead of it.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	state, err := h.stateService.PublicState(r.Context())
	if err != nil {
		h.logger.Error("failed to load state for websocket init", "error", err)
		http.Error(w, "failed to load state", http.StatusInternalServerError)
		return
	}
	initFrame, err := json.Marshal(broadcast.Message{
		Type:    broadcast.EventInit,
		Payload: state,
	})
	if err != nil {
		h.logger.Error("failed to encode init frame", "error", err)
		http.Error(w, "failed to encode state", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := broadcast.NewClient(h.hub, conn, initFrame)
	client.Register()
	go client.WritePump()
	go client.ReadPump()
}
