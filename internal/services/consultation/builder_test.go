package consultation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/models"
	"github.com/ternarybob/medguard/internal/services/extraction"
	"github.com/ternarybob/medguard/internal/services/protocols"
	"github.com/ternarybob/medguard/internal/services/redaction"
	"github.com/ternarybob/medguard/internal/services/triage"
)

type failingRecognizer struct{}

func (failingRecognizer) Analyze(context.Context, string, []string, string) ([]models.RedactionSpan, error) {
	return nil, models.ErrRecognitionUnavailable
}

func (failingRecognizer) Name() string { return "down" }

func newTestBuilder(t *testing.T, degraded bool) *Builder {
	t.Helper()
	logger := arbor.NewNoOpLogger()
	config := common.NewDefaultConfig()

	redactor := redaction.NewRedactor(nil, &config.Redaction, logger)
	if degraded {
		redactor = redaction.NewRedactor(failingRecognizer{}, &config.Redaction, logger)
	}

	return NewBuilder(
		extraction.NewDefaultExtractor(config, logger),
		redactor,
		triage.NewClassifier(&config.Triage),
		protocols.NewResolver(protocols.DefaultTable(), logger),
		logger,
	)
}

func TestBuildFromText_ClinicalNote(t *testing.T) {
	b := newTestBuilder(t, false)

	cc, err := b.BuildFromText(context.Background(), "Patient Name: Sarah Connor\nMRN: 849302\nDOB: 12/05/1984\nBP is 160/100.")
	require.NoError(t, err)

	text := cc.SanitizedText()
	assert.NotContains(t, text, "Sarah Connor")
	assert.NotContains(t, text, "849302")
	assert.NotContains(t, text, "12/05/1984")
	assert.Contains(t, text, "[REDACTED-NAME]")
	assert.Contains(t, text, "[REDACTED-ID]")
	assert.Contains(t, text, "[REDACTED-DATE]")
	assert.Contains(t, text, "BP is 160/100.")

	assert.True(t, cc.Risk().Tier.AtLeast(models.RiskModerate))
	assert.Equal(t, models.ExtractionManual, cc.Method())

	match := cc.Protocols()
	require.True(t, match.Found())
	assert.Equal(t, "BP-101", match.Entries[0].ID)
	assert.True(t, strings.HasPrefix(cc.ID(), "cst_"))
}

func TestBuildFromText_NoKeywords(t *testing.T) {
	b := newTestBuilder(t, false)

	cc, err := b.BuildFromText(context.Background(), "Routine visit. Patient feels well today.")
	require.NoError(t, err)

	assert.Equal(t, models.RiskStable, cc.Risk().Tier)
	assert.False(t, cc.Protocols().Found())
	assert.NotNil(t, cc.Protocols().Entries)
	assert.Empty(t, cc.Protocols().Entries)
}

func TestBuildFromText_DegradedRecognizer(t *testing.T) {
	b := newTestBuilder(t, true)

	cc, err := b.BuildFromText(context.Background(), "Name: Kyle Reese\nPhone 5551234567\nfever")
	require.NoError(t, err)

	assert.True(t, cc.Degraded())
	assert.NotContains(t, cc.SanitizedText(), "Kyle Reese")
	assert.NotContains(t, cc.SanitizedText(), "5551234567")
	assert.Equal(t, models.RiskModerate, cc.Risk().Tier)
}

func TestBuildFromText_EmptyFails(t *testing.T) {
	b := newTestBuilder(t, false)

	cc, err := b.BuildFromText(context.Background(), "   ")
	assert.Nil(t, cc)
	assert.True(t, models.IsExtractionFailure(err))
}

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) Extract(context.Context, models.RawDocument) (models.ExtractedText, error) {
	if s.err != nil {
		return models.ExtractedText{}, s.err
	}
	return models.ExtractedText{Text: s.text, Method: models.ExtractionOCR}, nil
}

func TestBuildFromDocument_ExtractionFailurePropagates(t *testing.T) {
	logger := arbor.NewNoOpLogger()
	config := common.NewDefaultConfig()
	failure := &models.ExtractionFailure{Method: models.ExtractionOCR, Cause: errors.New("tesseract missing")}

	b := NewBuilder(
		stubExtractor{err: failure},
		redaction.NewRedactor(nil, &config.Redaction, logger),
		triage.NewClassifier(&config.Triage),
		protocols.NewResolver(protocols.DefaultTable(), logger),
		logger,
	)

	_, err := b.BuildFromDocument(context.Background(), models.RawDocument{Data: []byte("%PDF"), MediaType: models.MediaTypePDF})
	var got *models.ExtractionFailure
	require.ErrorAs(t, err, &got)
	assert.Equal(t, models.ExtractionOCR, got.Method)
}

func TestBuildFromDocument_KeepsMethod(t *testing.T) {
	logger := arbor.NewNoOpLogger()
	config := common.NewDefaultConfig()

	b := NewBuilder(
		stubExtractor{text: "Severe chest pain radiating to left arm"},
		redaction.NewRedactor(nil, &config.Redaction, logger),
		triage.NewClassifier(&config.Triage),
		protocols.NewResolver(protocols.DefaultTable(), logger),
		logger,
	)

	cc, err := b.BuildFromDocument(context.Background(), models.RawDocument{Data: []byte("%PDF"), MediaType: models.MediaTypePDF})
	require.NoError(t, err)
	assert.Equal(t, models.ExtractionOCR, cc.Method())
	assert.Equal(t, models.RiskCritical, cc.Risk().Tier)
	assert.Equal(t, "CP-505", cc.Protocols().Entries[0].ID)
}
