package interfaces

import (
	"context"

	"github.com/ternarybob/medguard/internal/models"
)

// EntityRecognizer is the optional model-based redaction layer.
//
// Analyze returns spans in byte offsets of text. Any error, including
// models.ErrRecognitionUnavailable, is treated by the redactor as zero spans
// plus a degraded flag; it never fails redaction.
type EntityRecognizer interface {
	Analyze(ctx context.Context, text string, entities []string, language string) ([]models.RedactionSpan, error)
	Name() string
}
