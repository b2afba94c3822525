package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/models"
	"github.com/ternarybob/medguard/internal/services/chat"
	"github.com/ternarybob/medguard/internal/services/consultation"
)

// ConsultationHandler loads documents into sessions and exposes their state
type ConsultationHandler struct {
	chat          *chat.Service
	maxUploadSize int64
	logger        arbor.ILogger
}

func NewConsultationHandler(chatService *chat.Service, maxUploadSize int64, logger arbor.ILogger) *ConsultationHandler {
	return &ConsultationHandler{
		chat:          chatService,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

type createConsultationRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type consultationResponse struct {
	SessionID    string                      `json:"session_id"`
	CreatedAt    time.Time                   `json:"created_at"`
	Consultation *models.ConsultationSummary `json:"consultation"`
	History      []models.ChatTurn           `json:"history"`
}

// CreateHandler handles POST /api/consultations.
// Accepts a multipart upload in field "file" or JSON {"text": "..."}; an
// optional session_id replaces that session's context instead of creating one.
func (h *ConsultationHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	sessionID, doc, err := h.readDocument(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "document exceeds the upload limit")
			return
		}
		h.logger.Warn().Err(err).Msg("Invalid consultation request")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, cc, err := h.chat.LoadDocument(r.Context(), sessionID, doc)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	summary := cc.Summary()
	WriteJSON(w, http.StatusCreated, consultationResponse{
		SessionID:    session.ID(),
		CreatedAt:    session.CreatedAt(),
		Consultation: &summary,
		History:      []models.ChatTurn{},
	})
}

func (h *ConsultationHandler) readDocument(r *http.Request) (string, models.RawDocument, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if contentType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
			return "", models.RawDocument{}, err
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", models.RawDocument{}, errors.New("multipart field \"file\" is required")
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", models.RawDocument{}, err
		}
		mediaType, ok := models.DetectMediaType(header.Header.Get("Content-Type"), header.Filename, data)
		if !ok {
			return "", models.RawDocument{}, errors.New("unsupported document type, upload a PDF or plain text")
		}
		return r.FormValue("session_id"), models.RawDocument{Data: data, MediaType: mediaType, Filename: header.Filename}, nil
	}

	var req createConsultationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", models.RawDocument{}, err
		}
		return "", models.RawDocument{}, errors.New("invalid request body")
	}
	return req.SessionID, models.RawDocument{Data: []byte(req.Text), MediaType: models.MediaTypeText}, nil
}

// GetHandler handles GET /api/consultations/{id}
func (h *ConsultationHandler) GetHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, err := h.chat.Session(sessionID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	resp := consultationResponse{
		SessionID: session.ID(),
		CreatedAt: session.CreatedAt(),
		History:   session.History(),
	}
	if resp.History == nil {
		resp.History = []models.ChatTurn{}
	}

	cc, _, err := session.Context()
	switch {
	case err == nil:
		summary := cc.Summary()
		resp.Consultation = &summary
	case !errors.Is(err, consultation.ErrNoContext):
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

// DeleteHandler handles DELETE /api/consultations/{id}
func (h *ConsultationHandler) DeleteHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := h.chat.Reset(sessionID); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteSuccess(w, "Session reset")
}

// ListHandler handles GET /api/consultations
func (h *ConsultationHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	sessions := h.chat.Registry().List()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}
