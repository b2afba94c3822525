package main

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/interfaces"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

// handleRedact implements the redact_patient_info tool
func handleRedact(redactor interfaces.Redactor, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil || text == "" {
			return textResult("Error: text parameter is required"), nil
		}

		sanitized := redactor.Redact(ctx, text)
		logger.Debug().
			Int("redactions", len(sanitized.Spans)).
			Bool("degraded", sanitized.Degraded).
			Msg("Text redacted")

		return textResult(formatRedaction(sanitized)), nil
	}
}

// handleGuidelines implements the check_trusted_guidelines tool
func handleGuidelines(resolver interfaces.ProtocolResolver) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		condition, err := request.RequireString("condition")
		if err != nil || condition == "" {
			return textResult("Error: condition parameter is required"), nil
		}

		guideline, found := resolver.Lookup(condition)
		return textResult(formatGuideline(guideline, found)), nil
	}
}

// handleAssessRisk implements the assess_risk tool
func handleAssessRisk(classifier interfaces.RiskClassifier) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil || text == "" {
			return textResult("Error: text parameter is required"), nil
		}

		return textResult(formatRisk(classifier.Classify(text))), nil
	}
}

// handleFindProtocols implements the find_protocols tool
func handleFindProtocols(resolver interfaces.ProtocolResolver) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil || text == "" {
			return textResult("Error: text parameter is required"), nil
		}

		return textResult(formatProtocols(resolver.Resolve(text))), nil
	}
}
