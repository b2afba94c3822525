package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/ternarybob/medguard/internal/services/chat"
	"github.com/ternarybob/medguard/internal/services/report"
)

// ReportHandler exports a session as a report or a referral draft
type ReportHandler struct {
	chat     *chat.Service
	renderer interfaces.ReportRenderer
	config   *common.ReportConfig
	logger   arbor.ILogger
}

func NewReportHandler(chatService *chat.Service, renderer interfaces.ReportRenderer, config *common.ReportConfig, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{
		chat:     chatService,
		renderer: renderer,
		config:   config,
		logger:   logger,
	}
}

func (h *ReportHandler) loadSession(sessionID string) (report.Session, error) {
	session, err := h.chat.Session(sessionID)
	if err != nil {
		return report.Session{}, err
	}
	cc, _, err := session.Context()
	if err != nil {
		return report.Session{}, err
	}
	return report.Session{
		Context:     cc,
		History:     session.History(),
		Institution: h.config.Institution,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// ReportHandler handles GET /api/consultations/{id}/report?format=pdf|md
func (h *ReportHandler) ReportHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	s, err := h.loadSession(sessionID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	md := report.Markdown(s)

	switch format := r.URL.Query().Get("format"); format {
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"medguard-%s.md\"", s.Context.ID()))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(md))
	case "", "pdf":
		pdf, err := h.renderer.Render(md, s.Title())
		if err != nil {
			h.logger.Error().Str("session_id", sessionID).Err(err).Msg("Failed to render report")
			WriteError(w, http.StatusInternalServerError, "Failed to render report")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"medguard-%s.pdf\"", s.Context.ID()))
		w.WriteHeader(http.StatusOK)
		w.Write(pdf)
	default:
		WriteError(w, http.StatusBadRequest, "format must be pdf or md")
	}
}

// ReferralHandler handles GET /api/consultations/{id}/referral
func (h *ReportHandler) ReferralHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	s, err := h.loadSession(sessionID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	msg, err := report.Referral(s.Context, h.config, s.GeneratedAt)
	if err != nil {
		h.logger.Error().Str("session_id", sessionID).Err(err).Msg("Failed to build referral")
		WriteError(w, http.StatusInternalServerError, "Failed to build referral")
		return
	}

	w.Header().Set("Content-Type", "message/rfc822")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"referral-%s.eml\"", s.Context.ID()))
	w.WriteHeader(http.StatusOK)
	w.Write(msg)
}
