package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/services/llm"
)

// AuditHandler serves gateway audit records. Records hold sizes and outcomes only.
type AuditHandler struct {
	audit  llm.AuditLogger
	logger arbor.ILogger
}

func NewAuditHandler(audit llm.AuditLogger, logger arbor.ILogger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: logger}
}

// ListHandler handles GET /api/audit?limit=N
func (h *AuditHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := GetLimitParam(r, 50, 1000)
	records, err := h.audit.GetLogs(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list audit records")
		WriteError(w, http.StatusInternalServerError, "Failed to list audit records")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

// ExportHandler handles GET /api/audit/export
func (h *AuditHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"medguard-audit-%s.json\"", time.Now().UTC().Format("20060102")))
	if err := h.audit.ExportToJSON(r.Context(), w); err != nil {
		h.logger.Error().Err(err).Msg("Failed to export audit records")
	}
}
