package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/services/assistant"
	"github.com/ternarybob/medguard/internal/services/chat"
)

// ChatHandler answers clinician questions about a loaded consultation
type ChatHandler struct {
	chat   *chat.Service
	logger arbor.ILogger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *chat.Service, logger arbor.ILogger) *ChatHandler {
	return &ChatHandler{
		chat:   chatService,
		logger: logger,
	}
}

type askRequest struct {
	Question string `json:"question"`
}

// AskHandler handles POST /api/consultations/{id}/ask.
// The answer streams as Server-Sent Events: "fragment" events carrying text,
// at most one "error" event, then "done". With ?stream=false the answer is
// collected and returned as JSON instead.
func (h *ChatHandler) AskHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		WriteError(w, http.StatusBadRequest, "question field is required")
		return
	}

	h.logger.Info().
		Str("session_id", sessionID).
		Int("question_length", len(req.Question)).
		Msg("Processing question")

	fragments, err := h.chat.Ask(r.Context(), sessionID, req.Question)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	if r.URL.Query().Get("stream") == "false" {
		answer, failure := assistant.Collect(fragments)
		if failure != "" {
			WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
				"success": false,
				"answer":  answer,
				"error":   failure,
			})
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"answer":  answer,
		})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		// drain so the exchange is still recorded
		answer, failure := assistant.Collect(fragments)
		WriteJSON(w, http.StatusOK, map[string]interface{}{"answer": answer, "error": failure})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	flusher.Flush()

	for f := range fragments {
		event := "fragment"
		if f.Kind == assistant.FragmentError {
			event = "error"
		}
		if err := h.sendEvent(w, flusher, event, f); err != nil {
			// client went away; breaking stops the upstream stream
			h.logger.Debug().Str("session_id", sessionID).Err(err).Msg("Ask stream closed by client")
			return
		}
	}
	h.sendEvent(w, flusher, "done", map[string]string{"session_id": sessionID})
}

func (h *ChatHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal SSE event data")
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
