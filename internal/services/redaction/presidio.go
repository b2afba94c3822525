package redaction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/ternarybob/medguard/internal/models"
)

const maxAnalyzerResponse = 4 << 20

// presidioKinds maps analyzer entity types onto redaction kinds
var presidioKinds = map[string]models.EntityKind{
	"PERSON":          models.EntityPerson,
	"PHONE_NUMBER":    models.EntityPhone,
	"EMAIL_ADDRESS":   models.EntityEmail,
	"DATE_TIME":       models.EntityDate,
	"LOCATION":        models.EntityLocation,
	"URL":             models.EntityURL,
	"US_SSN":          models.EntityID,
	"MEDICAL_LICENSE": models.EntityID,
}

type analyzeRequest struct {
	Text           string   `json:"text"`
	Language       string   `json:"language"`
	Entities       []string `json:"entities,omitempty"`
	ScoreThreshold float64  `json:"score_threshold,omitempty"`
}

type analyzeResult struct {
	EntityType string  `json:"entity_type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
}

// PresidioRecognizer calls a presidio-analyzer service over HTTP
type PresidioRecognizer struct {
	endpoint string
	minScore float64
	client   *http.Client
	logger   arbor.ILogger
}

var _ interfaces.EntityRecognizer = (*PresidioRecognizer)(nil)

func NewPresidioRecognizer(config *common.PresidioConfig, logger arbor.ILogger) *PresidioRecognizer {
	return &PresidioRecognizer{
		endpoint: strings.TrimRight(config.Endpoint, "/"),
		minScore: config.MinScore,
		client:   &http.Client{Timeout: common.ParseDurationOr(config.Timeout, 5*time.Second)},
		logger:   logger,
	}
}

func (p *PresidioRecognizer) Name() string {
	return "presidio"
}

// Analyze returns spans in byte offsets. Results below the minimum score or of
// unmapped entity types are dropped. Transport failures wrap
// models.ErrRecognitionUnavailable.
func (p *PresidioRecognizer) Analyze(ctx context.Context, text string, entities []string, language string) ([]models.RedactionSpan, error) {
	body, err := json.Marshal(analyzeRequest{
		Text:           text,
		Language:       language,
		Entities:       entities,
		ScoreThreshold: p.minScore,
	})
	if err != nil {
		return nil, fmt.Errorf("encode analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRecognitionUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAnalyzerResponse))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", models.ErrRecognitionUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		// the body may echo the request text, so only the status is reported
		return nil, fmt.Errorf("%w: analyzer returned status %d", models.ErrRecognitionUnavailable, resp.StatusCode)
	}

	var results []analyzeResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", models.ErrRecognitionUnavailable, err)
	}

	offsets := runeToByteOffsets(text)
	spans := make([]models.RedactionSpan, 0, len(results))
	for _, r := range results {
		kind, ok := presidioKinds[r.EntityType]
		if !ok || r.Score < p.minScore {
			continue
		}
		if r.Start < 0 || r.End > len(offsets)-1 || r.End <= r.Start {
			continue
		}
		spans = append(spans, models.RedactionSpan{
			Start:  offsets[r.Start],
			End:    offsets[r.End],
			Kind:   kind,
			Source: models.SourceModel,
			Score:  r.Score,
		})
	}

	p.logger.Debug().Int("results", len(results)).Int("spans", len(spans)).Msg("Entity recognition complete")
	return spans, nil
}

// runeToByteOffsets maps each code point index (and the end index) to its byte offset
func runeToByteOffsets(text string) []int {
	offsets := make([]int, 0, len(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	return append(offsets, len(text))
}
