package models

import "time"

// ConsultationContext is the immutable result of processing one document.
// Fields are unexported so holders cannot mutate a shared context; the raw
// text is never part of it.
type ConsultationContext struct {
	id        string
	createdAt time.Time
	method    ExtractionMethod
	sanitized SanitizedText
	risk      RiskAssessment
	protocols ProtocolMatch
}

// NewConsultationContext copies its inputs so later changes to the caller's
// slices do not leak into the context.
func NewConsultationContext(id string, method ExtractionMethod, sanitized SanitizedText, risk RiskAssessment, protocols ProtocolMatch) *ConsultationContext {
	spans := make([]RedactionSpan, len(sanitized.Spans))
	copy(spans, sanitized.Spans)
	sanitized.Spans = spans

	entries := make([]ProtocolEntry, len(protocols.Entries))
	copy(entries, protocols.Entries)
	protocols.Entries = entries

	return &ConsultationContext{
		id:        id,
		createdAt: time.Now().UTC(),
		method:    method,
		sanitized: sanitized,
		risk:      risk,
		protocols: protocols,
	}
}

func (c *ConsultationContext) ID() string               { return c.id }
func (c *ConsultationContext) CreatedAt() time.Time     { return c.createdAt }
func (c *ConsultationContext) Method() ExtractionMethod { return c.method }
func (c *ConsultationContext) SanitizedText() string    { return c.sanitized.Text }
func (c *ConsultationContext) Degraded() bool           { return c.sanitized.Degraded }
func (c *ConsultationContext) Risk() RiskAssessment     { return c.risk }
func (c *ConsultationContext) RedactionCount() int      { return len(c.sanitized.Spans) }

// Protocols returns a copy of the protocol match
func (c *ConsultationContext) Protocols() ProtocolMatch {
	entries := make([]ProtocolEntry, len(c.protocols.Entries))
	copy(entries, c.protocols.Entries)
	return ProtocolMatch{Entries: entries, TableVersion: c.protocols.TableVersion}
}

// ConsultationSummary is the JSON view of a context
type ConsultationSummary struct {
	ID             string             `json:"id"`
	CreatedAt      time.Time          `json:"created_at"`
	Method         ExtractionMethod   `json:"extraction_method"`
	SanitizedText  string             `json:"sanitized_text"`
	Degraded       bool               `json:"degraded"`
	Redactions     map[EntityKind]int `json:"redactions"`
	Risk           RiskAssessment     `json:"risk"`
	Protocols      ProtocolMatch      `json:"protocols"`
	ProtocolsFound bool               `json:"protocols_found"`
}

// Summary renders the context for API responses
func (c *ConsultationContext) Summary() ConsultationSummary {
	return ConsultationSummary{
		ID:             c.id,
		CreatedAt:      c.createdAt,
		Method:         c.method,
		SanitizedText:  c.sanitized.Text,
		Degraded:       c.sanitized.Degraded,
		Redactions:     c.sanitized.CountByKind(),
		Risk:           c.risk,
		Protocols:      c.Protocols(),
		ProtocolsFound: c.protocols.Found(),
	}
}

// ChatRole is the author of a chat turn
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatTurn is one entry in a session transcript
type ChatTurn struct {
	Role    ChatRole  `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
	Failed  bool      `json:"failed,omitempty"`
}
