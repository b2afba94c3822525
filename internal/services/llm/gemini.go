package llm

import (
	"context"
	"fmt"
	"iter"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/interfaces"
	"google.golang.org/genai"
)

// GeminiStreamer streams completions from the Gemini API
type GeminiStreamer struct {
	client *genai.Client
	config *common.GeminiConfig
	retry  *RetryConfig
	logger arbor.ILogger
}

var _ interfaces.LLMStreamer = (*GeminiStreamer)(nil)

func NewGeminiStreamer(client *genai.Client, config *common.GeminiConfig, retry *RetryConfig, logger arbor.ILogger) *GeminiStreamer {
	if retry == nil {
		retry = NewDefaultRetryConfig()
	}
	return &GeminiStreamer{
		client: client,
		config: config,
		retry:  retry,
		logger: logger,
	}
}

func (s *GeminiStreamer) Name() string  { return string(ProviderGemini) }
func (s *GeminiStreamer) Model() string { return s.config.Model }

// Close drops the client reference; genai.Client holds no connections of its own
func (s *GeminiStreamer) Close() error {
	s.client = nil
	return nil
}

func (s *GeminiStreamer) Stream(ctx context.Context, request *interfaces.StreamRequest) iter.Seq2[string, error] {
	if s.client == nil {
		return failedStream(fmt.Errorf("gemini client is closed"))
	}

	contents, err := convertMessagesToGemini(request.Messages)
	if err != nil {
		return failedStream(fmt.Errorf("failed to convert messages: %w", err))
	}

	model := request.Model
	if model == "" {
		model = s.config.Model
	}

	temp := request.Temperature
	if temp == 0 {
		temp = s.config.Temperature
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temp),
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}
	if request.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(request.SystemInstruction, genai.RoleUser)
	}

	s.logger.Debug().
		Str("model", model).
		Int("message_count", len(contents)).
		Msg("Opening Gemini stream")

	return retryingStream(ctx, s.retry, s.logger, s.Name(), func(ctx context.Context, emit func(string) bool) (bool, bool, error) {
		emitted := false
		for resp, err := range s.client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				return emitted, false, fmt.Errorf("gemini stream failed: %w", err)
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			emitted = true
			if !emit(text) {
				return emitted, true, nil
			}
		}
		return emitted, false, nil
	})
}
