package interfaces

import (
	"context"

	"github.com/ternarybob/medguard/internal/models"
)

// Redactor removes PII. Redact never fails; a degraded recognizer is reported
// through SanitizedText.Degraded.
type Redactor interface {
	Redact(ctx context.Context, text string) models.SanitizedText
	RedactRules(text string) string
}

// RiskClassifier is a pure function of text
type RiskClassifier interface {
	Classify(text string) models.RiskAssessment
}

// ProtocolResolver reads the governance table
type ProtocolResolver interface {
	Resolve(text string) models.ProtocolMatch
	Lookup(condition string) (string, bool)
	Entries() []models.ProtocolEntry
	Version() string
}
