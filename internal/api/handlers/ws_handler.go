package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/medhaus/clinicflow/internal/infrastructure/observability"
	"github.com/medhaus/clinicflow/internal/realtime"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Kiosks and displays connect from other origins on the LAN.
		return true
	},
}

// WSHandler serves queue snapshots over WebSocket.
type WSHandler struct {
	broadcaster *realtime.Broadcaster
}

// NewWSHandler creates a new WebSocket handler
func NewWSHandler(broadcaster *realtime.Broadcaster) *WSHandler {
	return &WSHandler{broadcaster: broadcaster}
}

// StreamQueue handles GET /ws/queue
func (h *WSHandler) StreamQueue(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		observability.GetLogger().Warn().Err(err).Msg("ws: upgrade failed")
		return
	}

	sub := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(sub)
	defer conn.Close()

	// Reader exists only to process control frames and detect close.
	go func() {
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case snapshot, ok := <-sub.C():
			if !ok {
				// Dropped as a slow viewer; close so the client
				// reconnects and gets a fresh snapshot.
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscriber lagging"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(snapshot); err != nil {
				return
			}
		}
	}
}
