package interfaces

import (
	"context"

	"github.com/ternarybob/medguard/internal/models"
)

// DocumentExtractor converts a raw document into text.
// Failure is always a *models.ExtractionFailure; success is never empty text.
type DocumentExtractor interface {
	Extract(ctx context.Context, doc models.RawDocument) (models.ExtractedText, error)
}

// PageTextExtractor is one tier of the extraction chain: PDF bytes in, per-page text out.
type PageTextExtractor interface {
	ExtractPages(ctx context.Context, pdf []byte, maxPages int) ([]string, error)
	Method() models.ExtractionMethod
}

// Rasterizer renders PDF pages to images for OCR
type Rasterizer interface {
	// Rasterize writes page images under dir and returns them in page order
	Rasterize(ctx context.Context, pdf []byte, dir string, maxPages int) ([]models.PageImage, error)
}

// OCREngine recognises the text in a single page image
type OCREngine interface {
	Recognize(ctx context.Context, image models.PageImage) (string, error)
}

// CommandRunner runs an external binary and returns its stdout.
// It exists so the rasterizer and OCR engine can be tested without poppler or tesseract installed.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	LookPath(name string) (string, error)
}
