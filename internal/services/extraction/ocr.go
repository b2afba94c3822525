package extraction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/ternarybob/medguard/internal/models"
)

// pdftoppm names images <prefix>-<n>.png, zero-padding n to the page count width
var pageImagePattern = regexp.MustCompile(`^page-(\d+)\.png$`)

// PopplerRasterizer renders pages with pdftoppm
type PopplerRasterizer struct {
	runner  interfaces.CommandRunner
	binary  string
	dpi     int
	timeout time.Duration
	logger  arbor.ILogger
}

var _ interfaces.Rasterizer = (*PopplerRasterizer)(nil)

func NewPopplerRasterizer(runner interfaces.CommandRunner, config *common.OCRConfig, logger arbor.ILogger) *PopplerRasterizer {
	binary := config.PdftoppmPath
	if binary == "" {
		binary = "pdftoppm"
	}
	dpi := config.DPI
	if dpi == 0 {
		dpi = 300
	}
	return &PopplerRasterizer{
		runner:  runner,
		binary:  binary,
		dpi:     dpi,
		timeout: common.ParseDurationOr(config.Timeout, 60*time.Second),
		logger:  logger,
	}
}

// Rasterize writes the PDF into dir, renders up to maxPages pages as PNG and
// returns the images sorted by page number.
func (r *PopplerRasterizer) Rasterize(ctx context.Context, pdf []byte, dir string, maxPages int) ([]models.PageImage, error) {
	if _, err := r.runner.LookPath(r.binary); err != nil {
		return nil, fmt.Errorf("rasterizer not available: %w", err)
	}

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, pdf, 0600); err != nil {
		return nil, fmt.Errorf("failed to write rasterizer input: %w", err)
	}

	args := []string{"-r", strconv.Itoa(r.dpi), "-png"}
	if maxPages > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(maxPages))
	}
	args = append(args, input, filepath.Join(dir, "page"))

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.runner.Run(runCtx, r.binary, args...); err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list page images: %w", err)
	}

	var images []models.PageImage
	for _, entry := range entries {
		m := pageImagePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		images = append(images, models.PageImage{PageNumber: n, Path: filepath.Join(dir, entry.Name())})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].PageNumber < images[j].PageNumber })

	if len(images) == 0 {
		return nil, fmt.Errorf("rasterizer produced no page images")
	}

	r.logger.Debug().Int("pages", len(images)).Int("dpi", r.dpi).Msg("Rasterized document for OCR")
	return images, nil
}

// TesseractEngine runs tesseract on one page image and reads the text from stdout
type TesseractEngine struct {
	runner   interfaces.CommandRunner
	binary   string
	language string
	timeout  time.Duration
}

var _ interfaces.OCREngine = (*TesseractEngine)(nil)

func NewTesseractEngine(runner interfaces.CommandRunner, config *common.OCRConfig) *TesseractEngine {
	binary := config.TesseractPath
	if binary == "" {
		binary = "tesseract"
	}
	language := config.Language
	if language == "" {
		language = "eng"
	}
	return &TesseractEngine{
		runner:   runner,
		binary:   binary,
		language: language,
		timeout:  common.ParseDurationOr(config.Timeout, 60*time.Second),
	}
}

func (t *TesseractEngine) Recognize(ctx context.Context, image models.PageImage) (string, error) {
	if _, err := t.runner.LookPath(t.binary); err != nil {
		return "", fmt.Errorf("OCR engine not available: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	out, err := t.runner.Run(runCtx, t.binary, image.Path, "stdout", "-l", t.language)
	if err != nil {
		return "", fmt.Errorf("recognize page %d: %w", image.PageNumber, err)
	}
	return strings.TrimSpace(string(out)), nil
}
