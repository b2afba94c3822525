package redaction

import (
	"context"
	"errors"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/ternarybob/medguard/internal/models"
)

// Redactor masks PII with the deterministic rule layer and, when configured,
// an entity recognizer. Both layers' spans are resolved against the original
// text and merged before a single substitution pass.
type Redactor struct {
	recognizer interfaces.EntityRecognizer
	entities   []string
	language   string
	logger     arbor.ILogger
}

var _ interfaces.Redactor = (*Redactor)(nil)

// NewRedactor creates a redactor. recognizer may be nil for rule-only operation.
func NewRedactor(recognizer interfaces.EntityRecognizer, config *common.RedactionConfig, logger arbor.ILogger) *Redactor {
	language := config.Presidio.Language
	if language == "" {
		language = "en"
	}
	return &Redactor{
		recognizer: recognizer,
		entities:   config.Presidio.Entities,
		language:   language,
		logger:     logger,
	}
}

// NewRedactorFromConfig wires the presidio recognizer when it is enabled
func NewRedactorFromConfig(config *common.RedactionConfig, logger arbor.ILogger) *Redactor {
	var recognizer interfaces.EntityRecognizer
	if config.Presidio.Enabled {
		recognizer = NewPresidioRecognizer(&config.Presidio, logger)
	}
	return NewRedactor(recognizer, config, logger)
}

// Redact never fails. A recognizer error leaves only rule spans and sets Degraded.
func (r *Redactor) Redact(ctx context.Context, text string) models.SanitizedText {
	spans := ruleSpans(text)
	ruleCount := len(spans)
	degraded := false

	if r.recognizer != nil {
		modelSpans, err := r.recognizer.Analyze(ctx, text, r.entities, r.language)
		if err != nil {
			degraded = true
			r.logger.Warn().
				Str("recognizer", r.recognizer.Name()).
				Bool("unavailable", errors.Is(err, models.ErrRecognitionUnavailable)).
				Err(err).
				Msg("Entity recognition failed, continuing with rule-based redaction")
		} else {
			spans = append(spans, modelSpans...)
		}
	}

	merged := resolveSpans(text, spans)
	sanitized := models.SanitizedText{
		Text:     substitute(text, merged),
		Spans:    merged,
		Degraded: degraded,
	}

	r.logger.Debug().
		Int("rule_spans", ruleCount).
		Int("model_spans", len(spans)-ruleCount).
		Int("merged_spans", len(merged)).
		Bool("degraded", degraded).
		Msg("Text redacted")

	return sanitized
}

// RedactRules applies only the deterministic layer. It is used for short
// inputs such as chat questions where a network round trip is not wanted.
func (r *Redactor) RedactRules(text string) string {
	return substitute(text, resolveSpans(text, ruleSpans(text)))
}

// RuleSetVersion reports the version of the deterministic pattern set
func (r *Redactor) RuleSetVersion() string {
	return RuleSetVersion
}
