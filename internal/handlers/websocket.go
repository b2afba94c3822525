package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/services/assistant"
	"github.com/ternarybob/medguard/internal/services/chat"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const wsWriteWait = 10 * time.Second

// WSMessage is the envelope for every server-to-client message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// wsRequest is a client-to-server message: {"type":"question","question":"..."} or {"type":"ping"}
type wsRequest struct {
	Type     string `json:"type"`
	Question string `json:"question"`
}

// WebSocketHandler is the interactive chat channel for one session.
// Questions on a connection are answered in order.
type WebSocketHandler struct {
	chat   *chat.Service
	logger arbor.ILogger

	mu      sync.Mutex
	clients map[*websocket.Conn]string
}

func NewWebSocketHandler(chatService *chat.Service, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		chat:    chatService,
		logger:  logger,
		clients: make(map[*websocket.Conn]string),
	}
}

// HandleWebSocket handles GET /ws/consultations/{id}
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	segments := PathSegments(r.URL.Path, "/ws/consultations/")
	if len(segments) != 1 {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	sessionID := segments[0]
	if _, err := h.chat.Session(sessionID); err != nil {
		WriteServiceError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = sessionID
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Str("session_id", sessionID).Msgf("WebSocket client connected (total: %d)", clientCount)

	ctx, cancel := context.WithCancel(context.Background())

	// Handle client disconnection
	defer func() {
		cancel()
		h.mu.Lock()
		delete(h.clients, conn)
		clientCount := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Str("session_id", sessionID).Msgf("WebSocket client disconnected (remaining: %d)", clientCount)
	}()

	h.send(conn, WSMessage{Type: "ready", Payload: map[string]interface{}{
		"session_id": sessionID,
		"assistant":  h.chat.AssistantAvailable(),
	}})

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}

		switch req.Type {
		case "ping":
			if err := h.send(conn, WSMessage{Type: "pong"}); err != nil {
				return
			}
		case "question":
			if err := h.answer(ctx, conn, sessionID, req.Question); err != nil {
				return
			}
		default:
			if err := h.send(conn, WSMessage{Type: "error", Payload: "unknown message type"}); err != nil {
				return
			}
		}
	}
}

// answer streams one question's fragments. A write error ends the stream
// early, which cancels the upstream model call.
func (h *WebSocketHandler) answer(ctx context.Context, conn *websocket.Conn, sessionID, question string) error {
	if strings.TrimSpace(question) == "" {
		return h.send(conn, WSMessage{Type: "error", Payload: "question is required"})
	}

	fragments, err := h.chat.Ask(ctx, sessionID, question)
	if err != nil {
		return h.send(conn, WSMessage{Type: "error", Payload: err.Error()})
	}

	for f := range fragments {
		msgType := "fragment"
		if f.Kind == assistant.FragmentError {
			msgType = "error"
		}
		if err := h.send(conn, WSMessage{Type: msgType, Payload: f}); err != nil {
			return err
		}
	}
	return h.send(conn, WSMessage{Type: "done"})
}

func (h *WebSocketHandler) send(conn *websocket.Conn, msg WSMessage) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug().Err(err).Str("type", msg.Type).Msg("Failed to write WebSocket message")
		return err
	}
	return nil
}

// Close disconnects every client, used on shutdown
func (h *WebSocketHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
	}
}
