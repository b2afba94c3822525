package main

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/services/protocols"
	"github.com/ternarybob/medguard/internal/services/redaction"
	"github.com/ternarybob/medguard/internal/services/triage"
)

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) string {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args

	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestRedactTool(t *testing.T) {
	config := common.NewDefaultConfig()
	redactor := redaction.NewRedactor(nil, &config.Redaction, arbor.NewNoOpLogger())
	h := handleRedact(redactor, arbor.NewNoOpLogger())

	out := call(t, h, map[string]any{"text": "Patient Name: John Smith\nPatient ID: 88231\nBP 150/95"})
	assert.Contains(t, out, "SECURE_LOG: PII Removed.")
	assert.NotContains(t, out, "John Smith")
	assert.NotContains(t, out, "88231")
	assert.Contains(t, out, "BP 150/95")

	assert.Contains(t, call(t, h, map[string]any{}), "text parameter is required")
}

func TestGuidelinesTool(t *testing.T) {
	h := handleGuidelines(protocols.NewResolver(protocols.DefaultTable(), arbor.NewNoOpLogger()))

	assert.Equal(t,
		"AUTHORIZED PROTOCOL FOUND: Standard Protocol: Supplement 600-800 IU daily, increase sun exposure (15 mins/day).",
		call(t, h, map[string]any{"condition": "Low Vitamin D"}))
	assert.Equal(t, noGuidelineMessage, call(t, h, map[string]any{"condition": "gout"}))
}

func TestAssessRiskTool(t *testing.T) {
	config := common.NewDefaultConfig()
	h := handleAssessRisk(triage.NewClassifier(&config.Triage))

	out := call(t, h, map[string]any{"text": "Suspected stroke, patient unconscious"})
	assert.Contains(t, out, "RISK LEVEL: CRITICAL")
	assert.Contains(t, out, triage.ActionCritical)

	out = call(t, h, map[string]any{"text": "Routine check, all normal"})
	assert.Contains(t, out, "RISK LEVEL: STABLE")
}

func TestFindProtocolsTool(t *testing.T) {
	h := handleFindProtocols(protocols.NewResolver(protocols.DefaultTable(), arbor.NewNoOpLogger()))

	out := call(t, h, map[string]any{"text": "Fever and dizziness since Monday"})
	assert.Contains(t, out, "ID-303")
	assert.Contains(t, out, "NE-404")

	assert.Equal(t, protocols.NoMatchMessage, call(t, h, map[string]any{"text": "Routine visit"}))
}
