package llm

import (
	"context"
	"fmt"
	"iter"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/interfaces"
)

// ClaudeStreamer streams completions from the Anthropic Messages API
type ClaudeStreamer struct {
	client anthropic.Client
	config *common.ClaudeConfig
	retry  *RetryConfig
	logger arbor.ILogger
}

var _ interfaces.LLMStreamer = (*ClaudeStreamer)(nil)

// NewClaudeStreamer wraps an already-authenticated client
func NewClaudeStreamer(client anthropic.Client, config *common.ClaudeConfig, retry *RetryConfig, logger arbor.ILogger) *ClaudeStreamer {
	if retry == nil {
		retry = NewDefaultRetryConfig()
	}
	return &ClaudeStreamer{
		client: client,
		config: config,
		retry:  retry,
		logger: logger,
	}
}

func (s *ClaudeStreamer) Name() string  { return string(ProviderClaude) }
func (s *ClaudeStreamer) Model() string { return s.config.Model }

// Close is a no-op; the HTTP client is shared
func (s *ClaudeStreamer) Close() error { return nil }

// Stream yields text deltas. Non-text events (message_start, tool deltas) are ignored.
func (s *ClaudeStreamer) Stream(ctx context.Context, request *interfaces.StreamRequest) iter.Seq2[string, error] {
	messages, err := convertMessagesToClaude(request.Messages)
	if err != nil {
		return failedStream(fmt.Errorf("failed to convert messages: %w", err))
	}

	model := request.Model
	if model == "" {
		model = s.config.Model
	}
	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.config.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}

	temp := request.Temperature
	if temp == 0 {
		temp = s.config.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}

	if request.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: request.SystemInstruction},
		}
	}

	s.logger.Debug().
		Str("model", model).
		Int("message_count", len(messages)).
		Int("max_tokens", maxTokens).
		Msg("Opening Claude stream")

	return retryingStream(ctx, s.retry, s.logger, s.Name(), func(ctx context.Context, emit func(string) bool) (bool, bool, error) {
		stream := s.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		emitted := false
		for stream.Next() {
			event := stream.Current()
			delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			text, ok := delta.Delta.AsAny().(anthropic.TextDelta)
			if !ok || text.Text == "" {
				continue
			}
			emitted = true
			if !emit(text.Text) {
				return emitted, true, nil
			}
		}

		if err := stream.Err(); err != nil {
			return emitted, false, fmt.Errorf("claude stream failed: %w", err)
		}
		return emitted, false, nil
	})
}

// failedStream yields a single error
func failedStream(err error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", err)
	}
}
