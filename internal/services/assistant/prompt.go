package assistant

import (
	"fmt"
	"strings"

	"github.com/ternarybob/medguard/internal/models"
	"github.com/ternarybob/medguard/internal/services/protocols"
)

// BuildSystemPrompt renders the instruction sent with every question. Only
// the sanitized text, the assessment and the protocol citations are read
// from the context.
func BuildSystemPrompt(cc *models.ConsultationContext) string {
	var b strings.Builder

	b.WriteString("You are MedGuard, a secure medical assistant for doctors.\n\n")

	b.WriteString("CONTEXT (SANITIZED DATA):\n")
	b.WriteString(cc.SanitizedText())
	b.WriteString("\n\n")

	risk := cc.Risk()
	fmt.Fprintf(&b, "RISK LEVEL: %s\n", risk.Tier)
	fmt.Fprintf(&b, "RECOMMENDED ACTION: %s\n", risk.Action)

	match := cc.Protocols()
	if match.Found() {
		b.WriteString("HOSPITAL PROTOCOL:\n")
		for _, citation := range match.Citations() {
			b.WriteString("- ")
			b.WriteString(citation)
			b.WriteString("\n")
		}
	} else {
		fmt.Fprintf(&b, "HOSPITAL PROTOCOL: %s\n", protocols.NoMatchMessage)
	}

	b.WriteString(`
RULES:
1. You CANNOT see the patient's identity. Names, dates, contact details and identifiers are replaced by [REDACTED] markers.
2. Never attempt to infer, guess or ask for the patient's identity or any redacted value.
3. Answer questions based ONLY on the provided context.
4. If the protocol cites an ID or URL, cite it.
5. Be concise, clinical, and professional.
`)
	return b.String()
}
