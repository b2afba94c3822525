package llm

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/ternarybob/medguard/internal/models"
	"google.golang.org/genai"
)

func newTestFactory() *ProviderFactory {
	cfg := common.NewDefaultConfig()
	return NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, nil, arbor.NewNoOpLogger())
}

func TestDetectProvider(t *testing.T) {
	f := newTestFactory()

	tests := []struct {
		model string
		want  ProviderType
	}{
		{"", ProviderClaude},
		{"claude-haiku-4-5", ProviderClaude},
		{"anthropic/claude-sonnet-4-5", ProviderClaude},
		{"gemini-2.5-flash", ProviderGemini},
		{"google/gemini-2.5-pro", ProviderGemini},
		{"mystery-model", ProviderClaude},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, f.DetectProvider(tt.model))
		})
	}
}

func TestNormalizeModel(t *testing.T) {
	f := newTestFactory()
	assert.Equal(t, "claude-haiku-4-5", f.NormalizeModel("claude/claude-haiku-4-5"))
	assert.Equal(t, "gemini-2.5-flash", f.NormalizeModel("Google/gemini-2.5-flash"))
	assert.Equal(t, "gemini-2.5-flash", f.NormalizeModel("gemini-2.5-flash"))
}

func TestStreamer_UnknownProvider(t *testing.T) {
	f := newTestFactory()
	_, err := f.Streamer(context.Background(), ProviderType("cerebras"))
	require.Error(t, err)
}

func TestStreamer_CachesClaude(t *testing.T) {
	t.Setenv("MEDGUARD_CLAUDE_API_KEY", "test-key")
	f := newTestFactory()

	first, err := f.Streamer(context.Background(), ProviderClaude)
	require.NoError(t, err)
	second, err := f.Streamer(context.Background(), ProviderClaude)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "claude", first.Name())

	require.NoError(t, f.Close())
}

func TestForAssistant_ModelImpliesProvider(t *testing.T) {
	t.Setenv("MEDGUARD_GEMINI_API_KEY", "test-key")
	f := newTestFactory()

	s, model, err := f.ForAssistant(context.Background(), &common.AssistantConfig{Model: "gemini/gemini-2.5-flash"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", s.Name())
	assert.Equal(t, "gemini-2.5-flash", model)
}

func TestForAssistant_DefaultModel(t *testing.T) {
	t.Setenv("MEDGUARD_CLAUDE_API_KEY", "test-key")
	f := newTestFactory()

	s, model, err := f.ForAssistant(context.Background(), &common.AssistantConfig{Provider: common.LLMProviderClaude})
	require.NoError(t, err)
	assert.Equal(t, "claude", s.Name())
	assert.Equal(t, f.GetDefaultModel(ProviderClaude), model)
	assert.NotEmpty(t, model)
}

func TestConvertMessages(t *testing.T) {
	msgs := []interfaces.Message{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "second"},
	}

	claude, err := convertMessagesToClaude(msgs)
	require.NoError(t, err)
	assert.Len(t, claude, 3)

	gemini, err := convertMessagesToGemini(msgs)
	require.NoError(t, err)
	require.Len(t, gemini, 3)
	assert.Equal(t, genai.RoleModel, gemini[1].Role)
	assert.Equal(t, "second", gemini[2].Parts[0].Text)

	_, err = convertMessagesToClaude(nil)
	assert.Error(t, err)
	_, err = convertMessagesToGemini([]interfaces.Message{{Role: "assistant", Content: "x"}})
	assert.Error(t, err)
}

type memoryAuditStorage struct {
	records []models.GatewayAudit
}

func (m *memoryAuditStorage) Save(_ context.Context, r *models.GatewayAudit) error {
	m.records = append(m.records, *r)
	return nil
}

func (m *memoryAuditStorage) List(_ context.Context, limit int) ([]models.GatewayAudit, error) {
	if limit > len(m.records) {
		limit = len(m.records)
	}
	return m.records[:limit], nil
}

func (m *memoryAuditStorage) ListBySession(context.Context, string) ([]models.GatewayAudit, error) {
	return m.records, nil
}

func (m *memoryAuditStorage) DeleteOlderThan(context.Context, int64) (int, error) { return 0, nil }

func TestStorageAuditLogger(t *testing.T) {
	store := &memoryAuditStorage{}
	l := NewStorageAuditLogger(store, arbor.NewNoOpLogger())
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, &models.GatewayAudit{ID: "a1", Provider: "claude", QuestionChars: 12, Success: true}))

	logs, err := l.GetLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 12, logs[0].QuestionChars)

	var buf bytes.Buffer
	require.NoError(t, l.ExportToJSON(ctx, &buf))
	assert.Contains(t, buf.String(), `"question_chars": 12`)
}

func TestNullAuditLogger(t *testing.T) {
	var l AuditLogger = NullAuditLogger{}
	require.NoError(t, l.Record(context.Background(), &models.GatewayAudit{}))

	logs, err := l.GetLogs(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, logs)
}
