package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/services/assistant"
)

func dialSession(t *testing.T, serverURL, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws/consultations/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readUntilDone(t *testing.T, conn *websocket.Conn) []WSMessage {
	t.Helper()
	var msgs []WSMessage
	for {
		var msg WSMessage
		require.NoError(t, conn.ReadJSON(&msg))
		msgs = append(msgs, msg)
		if msg.Type == "done" || msg.Type == "error" {
			return msgs
		}
	}
}

func TestWebSocket_QuestionAnswer(t *testing.T) {
	svc, config := newTestChat(t, &fixedAsker{fragments: []assistant.Fragment{
		{Kind: assistant.FragmentText, Text: "Check "},
		{Kind: assistant.FragmentText, Text: "orthostatic vitals."},
	}})
	created := createFromText(t, NewConsultationHandler(svc, config.Server.MaxUploadSize, arbor.NewNoOpLogger()), "Dizziness since morning.")

	handler := NewWebSocketHandler(svc, arbor.NewNoOpLogger())
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	conn := dialSession(t, server.URL, created.SessionID)
	defer conn.Close()

	var ready WSMessage
	require.NoError(t, conn.ReadJSON(&ready))
	assert.Equal(t, "ready", ready.Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "question", "question": "Next steps?"}))
	msgs := readUntilDone(t, conn)

	require.Len(t, msgs, 3)
	assert.Equal(t, "fragment", msgs[0].Type)
	assert.Equal(t, "fragment", msgs[1].Type)
	assert.Equal(t, "done", msgs[2].Type)

	// answers on one connection are serialized, so a second question works
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "question", "question": "And then?"}))
	assert.Len(t, readUntilDone(t, conn), 3)

	session, err := svc.Session(created.SessionID)
	require.NoError(t, err)
	assert.Len(t, session.History(), 4)
}

func TestWebSocket_Errors(t *testing.T) {
	svc, config := newTestChat(t, nil)
	created := createFromText(t, NewConsultationHandler(svc, config.Server.MaxUploadSize, arbor.NewNoOpLogger()), "Fever.")

	handler := NewWebSocketHandler(svc, arbor.NewNoOpLogger())
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	// unknown sessions are rejected before the upgrade
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/consultations/ses_missing"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	conn := dialSession(t, server.URL, created.SessionID)
	defer conn.Close()

	var ready WSMessage
	require.NoError(t, conn.ReadJSON(&ready))
	assert.Equal(t, false, ready.Payload.(map[string]interface{})["assistant"])

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	var pong WSMessage
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong.Type)

	// no model configured: the error arrives on the socket, the connection stays open
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "question", "question": "q"}))
	msgs := readUntilDone(t, conn)
	assert.Equal(t, "error", msgs[len(msgs)-1].Type)
	assert.Contains(t, msgs[len(msgs)-1].Payload, "not configured")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong.Type)
}
