package extraction

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/ternarybob/medguard/internal/models"
)

// pdfcpu writes one file per page named <name>_Content_page_<n>.txt
var contentFilePattern = regexp.MustCompile(`_Content_page_(\d+)\.txt$`)

// LayoutExtractor reads the PDF's page tree with pdfcpu and rebuilds lines
// from each page's positioned text operators.
type LayoutExtractor struct {
	logger  arbor.ILogger
	tempDir string
}

var _ interfaces.PageTextExtractor = (*LayoutExtractor)(nil)

// NewLayoutExtractor creates the pdfcpu tier. tempDir may be empty to use the OS default.
func NewLayoutExtractor(tempDir string, logger arbor.ILogger) *LayoutExtractor {
	return &LayoutExtractor{
		logger:  logger,
		tempDir: tempDir,
	}
}

func (e *LayoutExtractor) Method() models.ExtractionMethod {
	return models.ExtractionLayoutAware
}

// ExtractPages returns the text of the first maxPages pages in page order.
// Pages without a content stream yield an empty string.
func (e *LayoutExtractor) ExtractPages(ctx context.Context, pdf []byte, maxPages int) ([]string, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pageCount, err := api.PageCount(bytes.NewReader(pdf), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF page tree: %w", err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var selected []string
	if maxPages > 0 && pageCount > maxPages {
		e.logger.Debug().
			Int("page_count", pageCount).
			Int("max_pages", maxPages).
			Msg("Limiting layout extraction to leading pages")
		selected = []string{fmt.Sprintf("1-%d", maxPages)}
		pageCount = maxPages
	}

	outDir, err := os.MkdirTemp(e.tempDir, "medguard-layout-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	if err := api.ExtractContent(bytes.NewReader(pdf), outDir, "doc", selected, conf); err != nil {
		return nil, fmt.Errorf("failed to extract page content: %w", err)
	}

	files, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted content: %w", err)
	}

	pages := make([]string, pageCount)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		m := contentFilePattern.FindStringSubmatch(file.Name())
		if m == nil {
			continue
		}
		pageNum, err := strconv.Atoi(m[1])
		if err != nil || pageNum < 1 || pageNum > pageCount {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			e.logger.Warn().Err(err).Int("page", pageNum).Msg("Failed to read page content")
			continue
		}
		pages[pageNum-1] = decodeContentStream(content)
	}

	return pages, nil
}
