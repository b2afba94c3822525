package models

// EntityKind classifies a redacted span
type EntityKind string

const (
	EntityPerson   EntityKind = "PERSON"
	EntityDate     EntityKind = "DATE"
	EntityID       EntityKind = "ID"
	EntityPhone    EntityKind = "PHONE"
	EntityEmail    EntityKind = "EMAIL"
	EntityLocation EntityKind = "LOCATION"
	EntityURL      EntityKind = "URL"
)

// Placeholder returns the fixed token that replaces spans of this kind
func (k EntityKind) Placeholder() string {
	switch k {
	case EntityPerson:
		return "[REDACTED-NAME]"
	case EntityDate:
		return "[REDACTED-DATE]"
	case EntityID:
		return "[REDACTED-ID]"
	case EntityPhone:
		return "[REDACTED-PHONE]"
	case EntityEmail:
		return "[REDACTED-EMAIL]"
	case EntityLocation:
		return "[REDACTED-LOCATION]"
	case EntityURL:
		return "[REDACTED-URL]"
	}
	return "[REDACTED]"
}

// Priority decides which placeholder wins when spans of different kinds are merged.
// Higher wins.
func (k EntityKind) Priority() int {
	switch k {
	case EntityPerson:
		return 7
	case EntityID:
		return 6
	case EntityEmail:
		return 5
	case EntityPhone:
		return 4
	case EntityDate:
		return 3
	case EntityURL:
		return 2
	case EntityLocation:
		return 1
	}
	return 0
}

// SpanSource identifies which redaction layer produced a span
type SpanSource string

const (
	SourceRule  SpanSource = "rule"
	SourceModel SpanSource = "model"
)

// RedactionSpan is a half-open byte range [Start, End) in the original text
type RedactionSpan struct {
	Start  int        `json:"start"`
	End    int        `json:"end"`
	Kind   EntityKind `json:"kind"`
	Source SpanSource `json:"source"`
	Score  float64    `json:"score,omitempty"`
}

// Len returns the span width in bytes
func (s RedactionSpan) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether two spans share at least one byte or touch
func (s RedactionSpan) Overlaps(o RedactionSpan) bool {
	return s.Start <= o.End && o.Start <= s.End
}

// SanitizedText is text with every span replaced by its placeholder.
// Spans are the merged spans in original-text coordinates; they never carry
// the original values.
type SanitizedText struct {
	Text     string          `json:"text"`
	Spans    []RedactionSpan `json:"spans"`
	Degraded bool            `json:"degraded"`
}

// CountByKind tallies merged spans per entity kind
func (s SanitizedText) CountByKind() map[EntityKind]int {
	counts := make(map[EntityKind]int)
	for _, span := range s.Spans {
		counts[span.Kind]++
	}
	return counts
}
