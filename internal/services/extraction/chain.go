package extraction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/ternarybob/medguard/internal/models"
)

// Extractor runs the fixed degradation chain:
// layout-aware, then OCR when the layout text is too short, with the
// direct-text scan standing in when the layout tier errors.
type Extractor struct {
	layout     interfaces.PageTextExtractor
	direct     interfaces.PageTextExtractor
	rasterizer interfaces.Rasterizer
	ocr        interfaces.OCREngine
	logger     arbor.ILogger

	minTextChars int
	maxPages     int
	maxBytes     int64
	ocrEnabled   bool
	ocrMaxPages  int
	tempDir      string
}

var _ interfaces.DocumentExtractor = (*Extractor)(nil)

// NewExtractor wires the tiers. rasterizer and ocr may be nil when OCR is disabled;
// scanned documents then fail instead of returning empty text.
func NewExtractor(layout, direct interfaces.PageTextExtractor, rasterizer interfaces.Rasterizer, ocr interfaces.OCREngine, config *common.Config, logger arbor.ILogger) *Extractor {
	return &Extractor{
		layout:       layout,
		direct:       direct,
		rasterizer:   rasterizer,
		ocr:          ocr,
		logger:       logger,
		minTextChars: config.Extraction.MinTextChars,
		maxPages:     config.Extraction.MaxPages,
		maxBytes:     config.Extraction.MaxBytes,
		ocrEnabled:   config.OCR.Enabled && rasterizer != nil && ocr != nil,
		ocrMaxPages:  config.OCR.MaxPages,
		tempDir:      config.Extraction.TempDir,
	}
}

// NewDefaultExtractor builds the chain on pdfcpu, the raw stream scan and poppler/tesseract
func NewDefaultExtractor(config *common.Config, logger arbor.ILogger) *Extractor {
	runner := ExecRunner{}
	return NewExtractor(
		NewLayoutExtractor(config.Extraction.TempDir, logger),
		NewDirectExtractor(logger),
		NewPopplerRasterizer(runner, &config.OCR, logger),
		NewTesseractEngine(runner, &config.OCR),
		config,
		logger,
	)
}

// Extract converts doc to text. Errors are always *models.ExtractionFailure
// and never carry document content.
func (e *Extractor) Extract(ctx context.Context, doc models.RawDocument) (models.ExtractedText, error) {
	if len(doc.Data) == 0 {
		return models.ExtractedText{}, &models.ExtractionFailure{Cause: errors.New("empty document")}
	}
	if e.maxBytes > 0 && int64(len(doc.Data)) > e.maxBytes {
		return models.ExtractedText{}, &models.ExtractionFailure{
			Cause: fmt.Errorf("document is %d bytes, limit is %d", len(doc.Data), e.maxBytes),
		}
	}

	switch doc.MediaType {
	case models.MediaTypeText:
		return e.extractManual(doc)
	case models.MediaTypePDF:
		return e.extractPDF(ctx, doc)
	default:
		return models.ExtractedText{}, &models.ExtractionFailure{
			Cause: fmt.Errorf("unsupported media type %q", doc.MediaType),
		}
	}
}

func (e *Extractor) extractManual(doc models.RawDocument) (models.ExtractedText, error) {
	if !utf8.Valid(doc.Data) {
		return models.ExtractedText{}, &models.ExtractionFailure{
			Method: models.ExtractionManual,
			Cause:  errors.New("text is not valid UTF-8"),
		}
	}
	text := strings.TrimSpace(strings.ReplaceAll(string(doc.Data), "\r\n", "\n"))
	if text == "" {
		return models.ExtractedText{}, &models.ExtractionFailure{Method: models.ExtractionManual, Cause: models.ErrNoText}
	}
	return models.ExtractedText{Text: text, Method: models.ExtractionManual}, nil
}

func (e *Extractor) extractPDF(ctx context.Context, doc models.RawDocument) (models.ExtractedText, error) {
	start := time.Now()

	pages, err := e.layout.ExtractPages(ctx, doc.Data, e.maxPages)
	method := e.layout.Method()
	if err != nil {
		if ctx.Err() != nil {
			return models.ExtractedText{}, &models.ExtractionFailure{Method: method, Cause: ctx.Err()}
		}
		e.logger.Warn().Err(err).Msg("Layout extraction failed, falling back to direct text scan")

		var directErr error
		pages, directErr = e.direct.ExtractPages(ctx, doc.Data, e.maxPages)
		method = e.direct.Method()
		if directErr != nil {
			return models.ExtractedText{}, &models.ExtractionFailure{
				Method: method,
				Cause:  errors.Join(err, directErr),
			}
		}
	}

	text := joinPages(pages)
	chars := utf8.RuneCountInString(text)
	if chars >= e.minTextChars {
		e.logger.Info().
			Str("method", string(method)).
			Int("pages", len(pages)).
			Int("chars", chars).
			Dur("duration", time.Since(start)).
			Msg("Document text extracted")
		return models.ExtractedText{Text: text, Method: method, PageCount: len(pages)}, nil
	}

	e.logger.Info().
		Str("method", string(method)).
		Int("chars", chars).
		Int("min_chars", e.minTextChars).
		Msg("Extracted text below threshold, treating as scanned document")

	return e.extractOCR(ctx, doc, start)
}

func (e *Extractor) extractOCR(ctx context.Context, doc models.RawDocument, start time.Time) (models.ExtractedText, error) {
	if !e.ocrEnabled {
		return models.ExtractedText{}, &models.ExtractionFailure{
			Method: models.ExtractionOCR,
			Cause:  errors.New("document has no text layer and OCR is disabled"),
		}
	}

	dir, err := os.MkdirTemp(e.tempDir, "medguard-ocr-")
	if err != nil {
		return models.ExtractedText{}, &models.ExtractionFailure{Method: models.ExtractionOCR, Cause: err}
	}
	defer os.RemoveAll(dir)

	images, err := e.rasterizer.Rasterize(ctx, doc.Data, dir, e.ocrMaxPages)
	if err != nil {
		return models.ExtractedText{}, &models.ExtractionFailure{Method: models.ExtractionOCR, Cause: err}
	}

	pages := make([]string, 0, len(images))
	for _, image := range images {
		if err := ctx.Err(); err != nil {
			return models.ExtractedText{}, &models.ExtractionFailure{Method: models.ExtractionOCR, Cause: err}
		}
		pageText, err := e.ocr.Recognize(ctx, image)
		if err != nil {
			return models.ExtractedText{}, &models.ExtractionFailure{Method: models.ExtractionOCR, Cause: err}
		}
		pages = append(pages, pageText)
	}

	text := joinPages(pages)
	if text == "" {
		return models.ExtractedText{}, &models.ExtractionFailure{Method: models.ExtractionOCR, Cause: models.ErrNoText}
	}

	e.logger.Info().
		Str("method", string(models.ExtractionOCR)).
		Int("pages", len(images)).
		Int("chars", utf8.RuneCountInString(text)).
		Dur("duration", time.Since(start)).
		Msg("Document text extracted")

	return models.ExtractedText{Text: text, Method: models.ExtractionOCR, PageCount: len(images)}, nil
}

// joinPages concatenates non-empty pages with newlines
func joinPages(pages []string) string {
	var sb strings.Builder
	for _, page := range pages {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(page)
	}
	return sb.String()
}
