package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/atlasagent/atlas/internal/agent"
	"github.com/atlasagent/atlas/internal/artifacts"
	"github.com/atlasagent/atlas/internal/session"
	"github.com/atlasagent/atlas/internal/telemetry"
)

// WSHandler serves the realtime chat socket and the event stream socket.
type WSHandler struct {
	agent    *agent.Agent
	sessions session.Registry
	store    *artifacts.Store
	metrics  *telemetry.Metrics
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(ag *agent.Agent, sessions session.Registry, store *artifacts.Store, metrics *telemetry.Metrics) *WSHandler {
	return &WSHandler{
		agent:    ag,
		sessions: sessions,
		store:    store,
		metrics:  metrics,
		logger:   log.New(log.Writer(), "[WS] ", log.LstdFlags),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) Register(e *echo.Echo) {
	e.GET("/ws/chat/:session_id", h.chat)
	e.GET("/ws/stream", h.stream)
}

type wsIncoming struct {
	Type    string   `json:"type"`
	Content string   `json:"content"`
	Topics  []string `json:"topics"`
}

// chat runs streamed agent turns over one socket. Each inbound message is a
// full turn; events are relayed as they happen. Write failures end the
// connection, malformed input does not.
func (h *WSHandler) chat(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	h.metrics.WSConnected()
	defer h.metrics.WSDisconnected()

	sess := h.sessions.GetOrCreate(c.Param("session_id"))
	h.logger.Printf("chat socket open session=%s", sess.ID)
	defer h.logger.Printf("chat socket closed session=%s", sess.ID)

	if err := conn.WriteJSON(map[string]any{
		"type":       "connected",
		"session_id": sess.ID,
		"agent_name": h.agent.Name(),
	}); err != nil {
		return nil
	}

	ctx := c.Request().Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		var msg wsIncoming
		if err := json.Unmarshal(data, &msg); err != nil {
			if werr := conn.WriteJSON(map[string]any{"type": "error", "message": "invalid JSON message"}); werr != nil {
				return nil
			}
			continue
		}
		switch msg.Type {
		case "ping":
			if err := conn.WriteJSON(map[string]any{"type": "pong", "timestamp": time.Now().Format(time.RFC3339Nano)}); err != nil {
				return nil
			}
		case "cancel":
			// Turns run synchronously with this read loop, so a cancel can
			// only arrive between turns; acknowledge it.
			if err := conn.WriteJSON(map[string]any{"type": "cancelled"}); err != nil {
				return nil
			}
		case "message", "":
			if msg.Content == "" || len(msg.Content) > maxMessageLen {
				if err := conn.WriteJSON(map[string]any{"type": "error", "message": "content must be 1 to 10000 characters"}); err != nil {
					return nil
				}
				continue
			}
			if err := h.runStreamedTurn(ctx, conn, sess.ID, msg.Content); err != nil {
				return nil
			}
		default:
			if err := conn.WriteJSON(map[string]any{"type": "error", "message": "unknown message type: " + msg.Type}); err != nil {
				return nil
			}
		}
	}
}

// runStreamedTurn relays one turn's events to the socket and records the turn
// when it completes. A non-nil error means the socket is unusable; cancelling
// the derived context unblocks the producer in that case.
func (h *WSHandler) runStreamedTurn(ctx context.Context, conn *websocket.Conn, sessionID, content string) error {
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var reply string
	var arts []agent.Artifact
	succeeded := false
	for ev := range h.agent.ExecuteStream(turnCtx, content, sessionID) {
		switch ev.Type {
		case agent.EventStep:
			if ev.Step != nil && ev.Step.Type == agent.StepFinalAnswer {
				reply = ev.Step.Content
			}
		case agent.EventArtifact:
			if ev.Artifact != nil {
				arts = append(arts, *ev.Artifact)
			}
		case agent.EventComplete:
			succeeded = true
		}
		if err := conn.WriteJSON(map[string]any{"type": string(ev.Type), "data": ev}); err != nil {
			return err
		}
	}
	if succeeded {
		recordTurn(h.sessions, h.store, sessionID, content, reply, arts)
	}
	return nil
}

// stream is a lightweight subscription socket for clients that only watch
// events. Fan-out of turn events to subscribers is not implemented; the
// socket acknowledges subscriptions and answers pings.
func (h *WSHandler) stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	h.metrics.WSConnected()
	defer h.metrics.WSDisconnected()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		var msg wsIncoming
		if err := json.Unmarshal(data, &msg); err != nil {
			if werr := conn.WriteJSON(map[string]any{"type": "error", "message": "invalid JSON message"}); werr != nil {
				return nil
			}
			continue
		}
		switch msg.Type {
		case "subscribe":
			topics := msg.Topics
			if len(topics) == 0 {
				topics = []string{"all"}
			}
			if err := conn.WriteJSON(map[string]any{"type": "subscribed", "topics": topics}); err != nil {
				return nil
			}
		case "ping":
			if err := conn.WriteJSON(map[string]any{"type": "pong", "timestamp": time.Now().Format(time.RFC3339Nano)}); err != nil {
				return nil
			}
		default:
			if err := conn.WriteJSON(map[string]any{"type": "error", "message": "unknown message type: " + msg.Type}); err != nil {
				return nil
			}
		}
	}
}
