package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/pKa1/eg2/internal/envcap"
	"github.com/pKa1/eg2/internal/events"
)

// buildUpgrader creates a WebSocket upgrader with origin validation. An empty
// allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// envEventMessage is one environment event reported by the browser.
type envEventMessage struct {
	Type       string `json:"type"`
	Fullscreen bool   `json:"fullscreen"`
	Combo      string `json:"combo"`
}

var knownEnvEvents = map[envcap.EventType]struct{}{
	envcap.EventFullscreenChange: {},
	envcap.EventCopy:             {},
	envcap.EventCut:              {},
	envcap.EventPaste:            {},
	envcap.EventContextMenu:      {},
	envcap.EventKeyCombo:         {},
}

// WSHandler streams session events down to the browser and accepts
// environment events up from it over one websocket per session.
type WSHandler struct {
	registry *Registry
	bus      *events.Bus
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(registry *Registry, bus *events.Bus, logger *slog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		registry: registry,
		bus:      bus,
		logger:   logger,
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// Stream upgrades to a websocket bound to one session: published session
// events and bridge commands go down, environment events come up.
func (h *WSHandler) Stream(c *gin.Context) {
	sessionID := c.Param("id")
	s, ok := h.registry.Get(sessionID)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Session not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	messages, err := h.bus.Subscribe(ctx)
	if err != nil {
		h.logger.Error("event subscription failed", "session_id", sessionID, "error", err)
		return
	}

	wsLogger := h.logger.With("session_id", sessionID)
	wsLogger.Info("browser connected")

	// Single writer goroutine: session events and bridge commands both go
	// through it, reads stay on this goroutine.
	go h.writePump(ctx, cancel, conn, sessionID, s.Bridge, messages, wsLogger)

	h.readPump(conn, s.Bridge, wsLogger)
	wsLogger.Info("browser disconnected")
}

func (h *WSHandler) writePump(
	ctx context.Context,
	cancel context.CancelFunc,
	conn *websocket.Conn,
	sessionID string,
	bridge *Bridge,
	messages <-chan *message.Message,
	wsLogger *slog.Logger,
) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-bridge.Commands():
			if err := conn.WriteJSON(cmd); err != nil {
				wsLogger.Debug("command write failed", "error", err)
				return
			}

		case msg, open := <-messages:
			if !open {
				return
			}
			// One bus, many sessions: forward only this session's events.
			if msg.Metadata.Get("session_id") != sessionID {
				msg.Ack()
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg.Payload); err != nil {
				wsLogger.Debug("event write failed", "error", err)
				msg.Nack()
				return
			}
			msg.Ack()
		}
	}
}

func (h *WSHandler) readPump(conn *websocket.Conn, bridge *Bridge, wsLogger *slog.Logger) {
	for {
		var msg envEventMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLogger.Warn("unexpected websocket close", "error", err)
			}
			return
		}

		eventType := envcap.EventType(msg.Type)
		if _, known := knownEnvEvents[eventType]; !known {
			wsLogger.Debug("ignoring unknown environment event", "type", msg.Type)
			continue
		}

		bridge.Deliver(envcap.Event{
			Type:       eventType,
			Fullscreen: msg.Fullscreen,
			Combo:      msg.Combo,
			At:         time.Now(),
		})
	}
}
