package protocols

import (
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/ternarybob/medguard/internal/models"
)

// NoMatchMessage is shown when Resolve finds nothing
const NoMatchMessage = "No specific contraindications found in standard database."

// Resolver matches text against a read-only governance table
type Resolver struct {
	version    string
	entries    []models.ProtocolEntry
	keywords   []string
	guidelines map[string]string
}

var _ interfaces.ProtocolResolver = (*Resolver)(nil)

// NewResolver copies the table so later edits to it do not affect resolution
func NewResolver(table *Table, logger arbor.ILogger) *Resolver {
	r := &Resolver{
		version:    table.Version,
		entries:    make([]models.ProtocolEntry, len(table.Protocols)),
		keywords:   make([]string, len(table.Protocols)),
		guidelines: make(map[string]string, len(table.Guidelines)),
	}
	copy(r.entries, table.Protocols)
	for i, e := range r.entries {
		r.keywords[i] = strings.ToLower(strings.TrimSpace(e.Keyword))
	}
	for k, v := range table.Guidelines {
		r.guidelines[normalizeCondition(k)] = v
	}

	logger.Info().
		Str("version", r.version).
		Int("protocols", len(r.entries)).
		Int("guidelines", len(r.guidelines)).
		Msg("Protocol table loaded")

	return r
}

// Resolve returns every entry whose keyword occurs in text, in table order.
// An empty result is the authoritative "no protocol" answer.
func (r *Resolver) Resolve(text string) models.ProtocolMatch {
	lower := strings.ToLower(text)
	match := models.ProtocolMatch{Entries: []models.ProtocolEntry{}, TableVersion: r.version}
	for i, kw := range r.keywords {
		if strings.Contains(lower, kw) {
			match.Entries = append(match.Entries, r.entries[i])
		}
	}
	return match
}

// Lookup finds the guideline for a condition name such as "High BP" (key high_bp)
func (r *Resolver) Lookup(condition string) (string, bool) {
	g, ok := r.guidelines[normalizeCondition(condition)]
	return g, ok
}

// Entries returns a copy of the table rows
func (r *Resolver) Entries() []models.ProtocolEntry {
	out := make([]models.ProtocolEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Version returns the loaded table version
func (r *Resolver) Version() string {
	return r.version
}

func normalizeCondition(condition string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(condition)), " ", "_")
}
