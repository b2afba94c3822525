package consultation

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/ternarybob/medguard/internal/models"
)

// Builder runs the intake pipeline: extract, redact, then classify and
// resolve concurrently. Only extraction can fail.
type Builder struct {
	extractor  interfaces.DocumentExtractor
	redactor   interfaces.Redactor
	classifier interfaces.RiskClassifier
	resolver   interfaces.ProtocolResolver
	logger     arbor.ILogger
}

func NewBuilder(extractor interfaces.DocumentExtractor, redactor interfaces.Redactor, classifier interfaces.RiskClassifier, resolver interfaces.ProtocolResolver, logger arbor.ILogger) *Builder {
	return &Builder{
		extractor:  extractor,
		redactor:   redactor,
		classifier: classifier,
		resolver:   resolver,
		logger:     logger,
	}
}

// BuildFromDocument processes an uploaded document. The returned error is a
// *models.ExtractionFailure.
func (b *Builder) BuildFromDocument(ctx context.Context, doc models.RawDocument) (*models.ConsultationContext, error) {
	start := time.Now()

	extracted, err := b.extractor.Extract(ctx, doc)
	if err != nil {
		b.logger.Warn().
			Str("media_type", string(doc.MediaType)).
			Int("bytes", len(doc.Data)).
			Err(err).
			Msg("Document extraction failed")
		return nil, err
	}

	return b.build(ctx, extracted, start), nil
}

// BuildFromText processes manually entered notes
func (b *Builder) BuildFromText(ctx context.Context, text string) (*models.ConsultationContext, error) {
	return b.BuildFromDocument(ctx, models.RawDocument{Data: []byte(text), MediaType: models.MediaTypeText})
}

func (b *Builder) build(ctx context.Context, extracted models.ExtractedText, start time.Time) *models.ConsultationContext {
	// redaction completes before anything derived from the text leaves this function
	sanitized := b.redactor.Redact(ctx, extracted.Text)

	var (
		wg    sync.WaitGroup
		risk  models.RiskAssessment
		match models.ProtocolMatch
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		risk = b.classifier.Classify(extracted.Text)
	}()
	go func() {
		defer wg.Done()
		match = b.resolver.Resolve(extracted.Text)
	}()
	wg.Wait()

	cc := models.NewConsultationContext(common.NewConsultationID(), extracted.Method, sanitized, risk, match)

	b.logger.Info().
		Str("consultation_id", cc.ID()).
		Str("method", string(extracted.Method)).
		Int("redactions", cc.RedactionCount()).
		Bool("degraded", cc.Degraded()).
		Str("risk", risk.Tier.String()).
		Int("protocols", len(match.Entries)).
		Dur("duration", time.Since(start)).
		Msg("Consultation context built")

	return cc
}
