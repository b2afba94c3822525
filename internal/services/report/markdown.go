package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/medguard/internal/models"
	"github.com/ternarybob/medguard/internal/services/protocols"
)

// Session is everything a report is rendered from. The context holds
// sanitized text only, so reports never contain the original document.
type Session struct {
	Context     *models.ConsultationContext
	History     []models.ChatTurn
	Institution string
	GeneratedAt time.Time
}

// Title is used for the PDF metadata and the markdown H1
func (s Session) Title() string {
	if s.Institution == "" {
		return "MedGuard Report"
	}
	return s.Institution + " - MedGuard Report"
}

// Markdown renders the session report
func Markdown(s Session) string {
	cc := s.Context
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", s.Title())
	fmt.Fprintf(&b, "Generated %s\n\n", s.GeneratedAt.UTC().Format(time.RFC1123))

	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Consultation | %s |\n", cc.ID())
	fmt.Fprintf(&b, "| Processed | %s |\n", cc.CreatedAt().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "| Extraction | %s |\n", cc.Method())
	fmt.Fprintf(&b, "| Redactions | %d |\n", cc.RedactionCount())
	b.WriteString("\n")

	if cc.Degraded() {
		b.WriteString("**Degraded redaction:** the entity recognizer was unavailable; only rule-based redaction was applied.\n\n")
	}

	risk := cc.Risk()
	b.WriteString("## Risk Assessment\n\n")
	fmt.Fprintf(&b, "**%s** - %s\n\n", risk.Tier, risk.Action)
	if risk.Trigger != "" {
		fmt.Fprintf(&b, "Triggered by `%s`.\n\n", risk.Trigger)
	}

	b.WriteString("## Hospital Protocol\n\n")
	match := cc.Protocols()
	if match.Found() {
		for _, e := range match.Entries {
			fmt.Fprintf(&b, "- %s\n", e.Citation)
		}
		b.WriteString("\n")
	} else {
		b.WriteString(protocols.NoMatchMessage + "\n\n")
	}
	fmt.Fprintf(&b, "Governance table `%s`.\n\n", match.TableVersion)

	b.WriteString("## Sanitized Record\n\n")
	b.WriteString("```\n")
	b.WriteString(strings.ReplaceAll(cc.SanitizedText(), "```", "'''"))
	b.WriteString("\n```\n\n")

	b.WriteString("## Transcript\n\n")
	if len(s.History) == 0 {
		b.WriteString("No questions were asked.\n")
	}
	for _, turn := range s.History {
		label := strings.ToUpper(string(turn.Role))
		if turn.Failed {
			label += " (failed)"
		}
		fmt.Fprintf(&b, "**%s** (%s)\n\n%s\n\n", label, turn.At.UTC().Format("15:04:05"), strings.TrimSpace(turn.Content))
	}

	return b.String()
}
