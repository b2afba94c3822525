package main

import (
	"fmt"
	"strings"

	"github.com/ternarybob/medguard/internal/models"
	"github.com/ternarybob/medguard/internal/services/protocols"
)

const noGuidelineMessage = "WARNING: No authorized protocol found in hospital database. Advise manual doctor review."

func formatRedaction(s models.SanitizedText) string {
	var sb strings.Builder
	sb.WriteString("SECURE_LOG: PII Removed.\n")
	if s.Degraded {
		sb.WriteString("NOTE: entity recognition unavailable, rule-based redaction only.\n")
	}
	sb.WriteString(fmt.Sprintf("Sanitized Text: %s", s.Text))
	return sb.String()
}

func formatGuideline(guideline string, found bool) string {
	if !found {
		return noGuidelineMessage
	}
	return "AUTHORIZED PROTOCOL FOUND: " + guideline
}

func formatRisk(r models.RiskAssessment) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("RISK LEVEL: %s\n", r.Tier))
	sb.WriteString(fmt.Sprintf("RECOMMENDED ACTION: %s", r.Action))
	if r.Trigger != "" {
		sb.WriteString(fmt.Sprintf("\nTRIGGER: %s", r.Trigger))
	}
	return sb.String()
}

func formatProtocols(m models.ProtocolMatch) string {
	if !m.Found() {
		return protocols.NoMatchMessage
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Hospital Protocols (table %s)\n\n", m.TableVersion))
	for _, c := range m.Citations() {
		sb.WriteString("- " + c + "\n")
	}
	return sb.String()
}
