package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // 4 KB
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string              `json:"type"`
	Data  jsoniter.RawMessage `json:"data,omitempty"`
	Error string              `json:"error,omitempty"`
}

// Origins are enforced by the CORS layer for browsers; the upgrade accepts any.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary      Live alert stream
// @Description  Relays every published alert; ?tower=<id> keeps only that tower's alerts.
// @Tags         alerts
// @Param        tower  query  string  false  "Tower id"
// @Router       /ws/alerts [get]
func (h *Handler) wsAlerts(c *gin.Context) {
	tower := c.Query("tower")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	feed, err := h.services.AlertFeed.Subscribe(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusServiceUnavailable, "alert feed unavailable", "ws_subscribe_failed", err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reader goroutine to handle control frames and detect disconnects.
	done := make(chan struct{})
	go h.startReader(conn, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case msg, ok := <-feed:
			if !ok {
				h.closeWithError(conn, "alert feed closed")
				return
			}
			if !matchesTower(msg, tower) {
				continue
			}
			if err := writeEnvelope(conn, wsEnvelope{Type: "alert", Data: msg}); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

// matchesTower reports whether an alert message belongs to tower. An empty tower matches all.
func matchesTower(msg []byte, tower string) bool {
	if tower == "" {
		return true
	}
	return json.Get(msg, "id_torre").ToString() == tower
}

// Helper: startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

func (h *Handler) closeWithError(conn *websocket.Conn, msg string) {
	_ = writeEnvelope(conn, wsEnvelope{Type: "error", Error: msg})
}

// writeEnvelope encodes with jsoniter so Data is embedded verbatim.
func writeEnvelope(conn *websocket.Conn, env wsEnvelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, b)
}
