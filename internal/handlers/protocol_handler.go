package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/medguard/internal/interfaces"
)

// ProtocolHandler exposes the read-only governance table
type ProtocolHandler struct {
	resolver interfaces.ProtocolResolver
}

func NewProtocolHandler(resolver interfaces.ProtocolResolver) *ProtocolHandler {
	return &ProtocolHandler{resolver: resolver}
}

// ListHandler handles GET /api/protocols
func (h *ProtocolHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":   h.resolver.Version(),
		"protocols": h.resolver.Entries(),
	})
}

// LookupHandler handles GET /api/protocols/lookup?condition=High BP
func (h *ProtocolHandler) LookupHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	condition := strings.TrimSpace(r.URL.Query().Get("condition"))
	if condition == "" {
		WriteError(w, http.StatusBadRequest, "condition query parameter is required")
		return
	}

	guideline, found := h.resolver.Lookup(condition)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"condition": condition,
		"found":     found,
		"guideline": guideline,
	})
}
