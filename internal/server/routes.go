package server

import (
	"net/http"
)

const consultationsPrefix = "/api/consultations/"

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route - interactive chat per session
	mux.HandleFunc("/ws/consultations/", s.app.WSHandler.HandleWebSocket)

	// API routes - Consultations
	mux.HandleFunc("/api/consultations", s.handleConsultationsRoute) // GET (list), POST (create)
	mux.HandleFunc(consultationsPrefix, s.handleConsultationRoutes)  // /{id}, /{id}/ask, /{id}/report, /{id}/referral

	// API routes - Governance table
	mux.HandleFunc("/api/protocols", s.app.ProtocolHandler.ListHandler)
	mux.HandleFunc("/api/protocols/lookup", s.app.ProtocolHandler.LookupHandler)

	// API routes - Audit
	mux.HandleFunc("/api/audit", s.app.AuditHandler.ListHandler)
	mux.HandleFunc("/api/audit/export", s.app.AuditHandler.ExportHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleConsultationsRoute routes /api/consultations requests (list and create)
func (s *Server) handleConsultationsRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.ConsultationHandler.ListHandler, s.app.ConsultationHandler.CreateHandler)
}

// handleConsultationRoutes routes /api/consultations/{id} and its subresources
func (s *Server) handleConsultationRoutes(w http.ResponseWriter, r *http.Request) {
	id, sub, ok := SplitResourcePath(r.URL.Path, consultationsPrefix)
	if !ok {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	switch sub {
	case "":
		RouteResourceItem(w, r,
			WithID(id, s.app.ConsultationHandler.GetHandler),
			WithID(id, s.app.ConsultationHandler.DeleteHandler),
		)
	case "ask":
		s.app.ChatHandler.AskHandler(w, r, id)
	case "report":
		s.app.ReportHandler.ReportHandler(w, r, id)
	case "referral":
		s.app.ReportHandler.ReferralHandler(w, r, id)
	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}
