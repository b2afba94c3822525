package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/services/chat"
)

// APIHandler serves the system endpoints
type APIHandler struct {
	chat         *chat.Service
	config       *common.Config
	tableVersion string
	started      time.Time
	logger       arbor.ILogger
}

func NewAPIHandler(chatService *chat.Service, config *common.Config, tableVersion string, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		chat:         chatService,
		config:       config,
		tableVersion: tableVersion,
		started:      time.Now(),
		logger:       logger,
	}
}

// VersionHandler returns build information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, common.VersionInfo())
}

type healthResponse struct {
	Status        string `json:"status"`
	Assistant     bool   `json:"assistant"`
	Presidio      bool   `json:"presidio"`
	OCR           bool   `json:"ocr"`
	Storage       bool   `json:"storage"`
	ProtocolTable string `json:"protocol_table"`
	Sessions      int    `json:"sessions"`
	Uptime        string `json:"uptime"`
}

// HealthHandler reports which optional capabilities are on. The pipeline
// works without an assistant, so a missing model key does not fail the check.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Assistant:     h.chat.AssistantAvailable(),
		Presidio:      h.config.Redaction.Presidio.Enabled,
		OCR:           h.config.OCR.Enabled,
		Storage:       h.config.Storage.Badger.Enabled,
		ProtocolTable: h.tableVersion,
		Sessions:      h.chat.Registry().Len(),
		Uptime:        time.Since(h.started).Round(time.Second).String(),
	})
}

// NotFoundHandler answers unmatched API paths
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "no such endpoint: "+r.URL.Path)
}
