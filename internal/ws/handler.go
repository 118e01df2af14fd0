package ws

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/sporelabs/sporeverse/internal/dependencies/random"
	"github.com/sporelabs/sporeverse/internal/services/presence"
)

const connIDBytes = 8

// Handler upgrades HTTP requests to websocket sessions
type Handler struct {
	manager  *Manager
	presence Presence
	random   random.Random
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(manager *Manager, p Presence, rnd random.Random, logger *slog.Logger) *Handler {
	return &Handler{
		manager:  manager,
		presence: p,
		random:   rnd,
		logger:   logger.With(slog.String("component", "ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	id := presence.ConnID(h.random.Hex(connIDBytes))
	client := newClient(id, conn, h.manager, h.presence, h.logger)

	h.manager.attach(client)
	h.presence.Connect(id)
	h.logger.Info("websocket connected", slog.String("conn_id", string(id)))

	go client.writePump()
	// The read loop holds the handler goroutine so the request context stays
	// alive for the whole session.
	client.readPump(r.Context())
}
