package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/models"
	"github.com/ternarybob/medguard/internal/services/assistant"
	"github.com/ternarybob/medguard/internal/services/chat"
	"github.com/ternarybob/medguard/internal/services/consultation"
	"github.com/ternarybob/medguard/internal/services/extraction"
	"github.com/ternarybob/medguard/internal/services/protocols"
	"github.com/ternarybob/medguard/internal/services/redaction"
	"github.com/ternarybob/medguard/internal/services/report"
	"github.com/ternarybob/medguard/internal/services/triage"
)

const sampleNote = "Patient Name: Sarah Connor\nPhone: 555-123-4567\nComplains of chest pain. BP is 160/100."

// fixedAsker answers every question with the same fragments
type fixedAsker struct {
	fragments []assistant.Fragment
}

func (a *fixedAsker) Ask(_ context.Context, _ *models.ConsultationContext, _ string, _ ...assistant.AskOption) iter.Seq[assistant.Fragment] {
	return func(yield func(assistant.Fragment) bool) {
		for _, f := range a.fragments {
			if !yield(f) {
				return
			}
		}
	}
}

func newTestChat(t *testing.T, asker chat.Asker) (*chat.Service, *common.Config) {
	t.Helper()
	logger := arbor.NewNoOpLogger()
	config := common.NewDefaultConfig()

	redactor := redaction.NewRedactor(nil, &config.Redaction, logger)
	builder := consultation.NewBuilder(
		extraction.NewDefaultExtractor(config, logger),
		redactor,
		triage.NewClassifier(&config.Triage),
		protocols.NewResolver(protocols.DefaultTable(), logger),
		logger,
	)
	registry := consultation.NewRegistry(&config.Sessions, logger)
	svc := chat.NewService(registry, builder, asker, redactor, &config.Redaction, logger)
	return svc, config
}

func createFromText(t *testing.T, h *ConsultationHandler, text string) consultationResponse {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"text": text})
	req := httptest.NewRequest(http.MethodPost, "/api/consultations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.CreateHandler(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp consultationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateHandler_JSONText(t *testing.T) {
	svc, config := newTestChat(t, nil)
	h := NewConsultationHandler(svc, config.Server.MaxUploadSize, arbor.NewNoOpLogger())

	resp := createFromText(t, h, sampleNote)

	assert.NotEmpty(t, resp.SessionID)
	require.NotNil(t, resp.Consultation)
	assert.Equal(t, models.ExtractionManual, resp.Consultation.Method)
	assert.NotContains(t, resp.Consultation.SanitizedText, "Sarah Connor")
	assert.NotContains(t, resp.Consultation.SanitizedText, "555-123-4567")
	assert.Equal(t, models.RiskModerate, resp.Consultation.Risk.Tier)
	assert.True(t, resp.Consultation.ProtocolsFound)
}

func TestCreateHandler_Multipart(t *testing.T) {
	svc, config := newTestChat(t, nil)
	h := NewConsultationHandler(svc, config.Server.MaxUploadSize, arbor.NewNoOpLogger())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	part.Write([]byte("Patient is unconscious after a seizure."))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/consultations", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.CreateHandler(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp consultationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.RiskCritical, resp.Consultation.Risk.Tier)
}

func TestCreateHandler_Errors(t *testing.T) {
	svc, _ := newTestChat(t, nil)
	h := NewConsultationHandler(svc, 1024, arbor.NewNoOpLogger())

	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
	}{
		{"empty text", "application/json", `{"text":"   "}`, http.StatusUnprocessableEntity},
		{"bad json", "application/json", `{`, http.StatusBadRequest},
		{"unknown session", "application/json", `{"text":"fever","session_id":"ses_missing"}`, http.StatusNotFound},
		{"too large", "application/json", `{"text":"` + strings.Repeat("a", 2048) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/consultations", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()
			h.CreateHandler(w, req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestGetAndDeleteHandler(t *testing.T) {
	svc, config := newTestChat(t, nil)
	h := NewConsultationHandler(svc, config.Server.MaxUploadSize, arbor.NewNoOpLogger())
	created := createFromText(t, h, sampleNote)

	w := httptest.NewRecorder()
	h.GetHandler(w, httptest.NewRequest(http.MethodGet, "/api/consultations/"+created.SessionID, nil), created.SessionID)
	require.Equal(t, http.StatusOK, w.Code)
	var got consultationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, created.Consultation.ID, got.Consultation.ID)
	assert.Empty(t, got.History)

	w = httptest.NewRecorder()
	h.DeleteHandler(w, httptest.NewRequest(http.MethodDelete, "/", nil), created.SessionID)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.GetHandler(w, httptest.NewRequest(http.MethodGet, "/", nil), created.SessionID)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAskHandler_SSE(t *testing.T) {
	svc, config := newTestChat(t, &fixedAsker{fragments: []assistant.Fragment{
		{Kind: assistant.FragmentText, Text: "Follow "},
		{Kind: assistant.FragmentText, Text: "BP-101."},
	}})
	ch := NewConsultationHandler(svc, config.Server.MaxUploadSize, arbor.NewNoOpLogger())
	created := createFromText(t, ch, sampleNote)

	h := NewChatHandler(svc, arbor.NewNoOpLogger())
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"question":"What next?"}`))
	w := httptest.NewRecorder()
	h.AskHandler(w, req, created.SessionID)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "event: fragment\ndata: {\"kind\":\"text\",\"text\":\"Follow \"}")
	assert.Contains(t, body, "event: done")
	assert.Less(t, strings.Index(body, "BP-101."), strings.Index(body, "event: done"))

	session, err := svc.Session(created.SessionID)
	require.NoError(t, err)
	assert.Len(t, session.History(), 2)
}

func TestAskHandler_JSONAndErrors(t *testing.T) {
	svc, config := newTestChat(t, &fixedAsker{fragments: []assistant.Fragment{
		{Kind: assistant.FragmentError, Text: "assistant gateway failure (fake): 503"},
	}})
	ch := NewConsultationHandler(svc, config.Server.MaxUploadSize, arbor.NewNoOpLogger())
	created := createFromText(t, ch, sampleNote)
	h := NewChatHandler(svc, arbor.NewNoOpLogger())

	w := httptest.NewRecorder()
	h.AskHandler(w, httptest.NewRequest(http.MethodPost, "/?stream=false", strings.NewReader(`{"question":"q"}`)), created.SessionID)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "503")

	w = httptest.NewRecorder()
	h.AskHandler(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"question":""}`)), created.SessionID)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.AskHandler(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"question":"q"}`)), "ses_missing")
	assert.Equal(t, http.StatusNotFound, w.Code)

	empty := svc.Registry().Create()
	w = httptest.NewRecorder()
	h.AskHandler(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"question":"q"}`)), empty.ID())
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAskHandler_NoAssistant(t *testing.T) {
	svc, config := newTestChat(t, nil)
	ch := NewConsultationHandler(svc, config.Server.MaxUploadSize, arbor.NewNoOpLogger())
	created := createFromText(t, ch, sampleNote)

	w := httptest.NewRecorder()
	NewChatHandler(svc, arbor.NewNoOpLogger()).AskHandler(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"question":"q"}`)), created.SessionID)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReportHandlers(t *testing.T) {
	svc, config := newTestChat(t, nil)
	ch := NewConsultationHandler(svc, config.Server.MaxUploadSize, arbor.NewNoOpLogger())
	created := createFromText(t, ch, sampleNote)
	h := NewReportHandler(svc, report.NewPDFRenderer(arbor.NewNoOpLogger()), &config.Report, arbor.NewNoOpLogger())

	w := httptest.NewRecorder()
	h.ReportHandler(w, httptest.NewRequest(http.MethodGet, "/?format=md", nil), created.SessionID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Risk Assessment")
	assert.NotContains(t, w.Body.String(), "Sarah Connor")

	w = httptest.NewRecorder()
	h.ReportHandler(w, httptest.NewRequest(http.MethodGet, "/", nil), created.SessionID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = httptest.NewRecorder()
	h.ReportHandler(w, httptest.NewRequest(http.MethodGet, "/?format=docx", nil), created.SessionID)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.ReferralHandler(w, httptest.NewRequest(http.MethodGet, "/", nil), created.SessionID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "message/rfc822", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Urgent Referral - Patient ID [REDACTED]")
	assert.NotContains(t, w.Body.String(), "Sarah Connor")

	empty := svc.Registry().Create()
	w = httptest.NewRecorder()
	h.ReferralHandler(w, httptest.NewRequest(http.MethodGet, "/", nil), empty.ID())
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProtocolHandler(t *testing.T) {
	h := NewProtocolHandler(protocols.NewResolver(protocols.DefaultTable(), arbor.NewNoOpLogger()))

	w := httptest.NewRecorder()
	h.ListHandler(w, httptest.NewRequest(http.MethodGet, "/api/protocols", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "BP-101")

	w = httptest.NewRecorder()
	h.LookupHandler(w, httptest.NewRequest(http.MethodGet, "/api/protocols/lookup?condition=High+BP", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, true, got["found"])

	w = httptest.NewRecorder()
	h.LookupHandler(w, httptest.NewRequest(http.MethodGet, "/api/protocols/lookup", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPathSegments(t *testing.T) {
	assert.Equal(t, []string{"ses_1", "ask"}, PathSegments("/api/consultations/ses_1/ask", "/api/consultations/"))
	assert.Equal(t, []string{"ses_1"}, PathSegments("/api/consultations/ses_1/", "/api/consultations/"))
	assert.Nil(t, PathSegments("/api/consultations/", "/api/consultations/"))
}
