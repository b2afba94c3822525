package redaction

import (
	"regexp"
	"strings"

	"github.com/ternarybob/medguard/internal/models"
)

// RuleSetVersion identifies the deterministic pattern set below
const RuleSetVersion = "v2"

// rule pairs a matcher with the entity kind of its value. When group is
// non-zero only that capture group is masked, leaving the label in place.
type rule struct {
	name    string
	kind    models.EntityKind
	pattern *regexp.Regexp
	group   int
}

// rules are evaluated against the original text; order only matters for
// reporting, since all spans are merged before substitution. Bare values are
// guarded by non-digits rather than word boundaries; a guard consumes one
// character, so a value right after another one is caught on the next pass.
var rules = []rule{
	{
		name:    "name_label",
		kind:    models.EntityPerson,
		pattern: regexp.MustCompile(`(?i)(Patient Name:|Name:|Patient:)[ \t]*(\p{L}[\p{L}\p{M}'’\- ]*)`),
		group:   2,
	},
	{
		name:    "date_label",
		kind:    models.EntityDate,
		pattern: regexp.MustCompile(`(?i)(DOB:|Date of Birth:|Date:|Collected:)\s*([\d/\-.]{6,10})`),
		group:   2,
	},
	{
		name:    "date_numeric",
		kind:    models.EntityDate,
		pattern: regexp.MustCompile(`(?:^|\D)(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})(?:\D|$)`),
		group:   1,
	},
	{
		name:    "date_iso",
		kind:    models.EntityDate,
		pattern: regexp.MustCompile(`(?:^|\D)(\d{4}[/\-.]\d{1,2}[/\-.]\d{1,2})(?:\D|$)`),
		group:   1,
	},
	{
		name:    "date_textual",
		kind:    models.EntityDate,
		pattern: regexp.MustCompile(`(?i)(?:^|[^\p{L}])((?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4})(?:\D|$)`),
		group:   1,
	},
	{
		name:    "id_label",
		kind:    models.EntityID,
		pattern: regexp.MustCompile(`(?i)(?:^|[^\p{L}])(MRN:|Patient ID:|ID:|SSN:)\s*([a-z0-9\-]+)`),
		group:   2,
	},
	{
		name:    "email",
		kind:    models.EntityEmail,
		pattern: regexp.MustCompile(`[\w.\-]+@[\w.\-]+`),
	},
	{
		name:    "url",
		kind:    models.EntityURL,
		pattern: regexp.MustCompile(`(?i)(?:https?://|www\.)[^\s<>"'\[\]]+`),
	},
	{
		name:    "phone_formatted",
		kind:    models.EntityPhone,
		pattern: regexp.MustCompile(`\(?\d{3}\)?[ .\-]\d{3}[ .\-]\d{4}`),
	},
	{
		name:    "phone_digits",
		kind:    models.EntityPhone,
		pattern: regexp.MustCompile(`\d{10}`),
	},
}

// placeholderPattern matches tokens written by a previous redaction pass
var placeholderPattern = regexp.MustCompile(`\[REDACTED(?:-[A-Z]+)?\]`)

// ruleSpans runs every rule over text and returns spans in byte offsets
func ruleSpans(text string) []models.RedactionSpan {
	var spans []models.RedactionSpan
	for _, r := range rules {
		for _, m := range r.pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[0], m[1]
			if r.group > 0 {
				start, end = m[2*r.group], m[2*r.group+1]
				if start < 0 {
					continue
				}
			}
			// name values stop at the last letter
			end = start + len(strings.TrimRight(text[start:end], " \t"))
			if end <= start {
				continue
			}
			spans = append(spans, models.RedactionSpan{
				Start:  start,
				End:    end,
				Kind:   r.kind,
				Source: models.SourceRule,
			})
		}
	}
	return spans
}
