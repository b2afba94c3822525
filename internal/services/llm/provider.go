package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/interfaces"
	"google.golang.org/genai"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
)

// ProviderFactory resolves API keys and builds streamers on first use
type ProviderFactory struct {
	geminiConfig *common.GeminiConfig
	claudeConfig *common.ClaudeConfig
	llmConfig    *common.LLMConfig
	kvStorage    interfaces.KeyValueStorage
	retry        *RetryConfig
	logger       arbor.ILogger

	mu        sync.Mutex
	streamers map[ProviderType]interfaces.LLMStreamer
}

// NewProviderFactory creates a new provider factory.
// kvStorage may be nil; keys then come from the environment or config.
func NewProviderFactory(
	geminiConfig *common.GeminiConfig,
	claudeConfig *common.ClaudeConfig,
	llmConfig *common.LLMConfig,
	kvStorage interfaces.KeyValueStorage,
	logger arbor.ILogger,
) *ProviderFactory {
	return &ProviderFactory{
		geminiConfig: geminiConfig,
		claudeConfig: claudeConfig,
		llmConfig:    llmConfig,
		kvStorage:    kvStorage,
		retry:        NewDefaultRetryConfig(),
		logger:       logger,
		streamers:    make(map[ProviderType]interfaces.LLMStreamer),
	}
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-haiku-4-5" -> Claude
// - "claude/claude-haiku-4-5" -> Claude (with prefix)
// - "gemini-2.5-flash" -> Gemini
// - "gemini/gemini-2.5-flash" -> Gemini (with prefix)
// - Empty string -> uses default provider from config
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	if model == "" {
		return ProviderType(f.llmConfig.DefaultProvider)
	}

	model = strings.ToLower(model)

	if strings.HasPrefix(model, "claude/") || strings.HasPrefix(model, "anthropic/") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini/") || strings.HasPrefix(model, "google/") {
		return ProviderGemini
	}

	if strings.HasPrefix(model, "claude-") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini-") {
		return ProviderGemini
	}

	return ProviderType(f.llmConfig.DefaultProvider)
}

// NormalizeModel removes provider prefix from model name if present
func (f *ProviderFactory) NormalizeModel(model string) string {
	prefixes := []string{"claude/", "anthropic/", "gemini/", "google/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// GetDefaultModel returns the default model for a provider
func (f *ProviderFactory) GetDefaultModel(provider ProviderType) string {
	switch provider {
	case ProviderGemini:
		return f.geminiConfig.Model
	default:
		return f.claudeConfig.Model
	}
}

// ForAssistant picks the streamer for the assistant settings: an explicit
// provider wins, then the provider implied by the model name, then the default.
func (f *ProviderFactory) ForAssistant(ctx context.Context, config *common.AssistantConfig) (interfaces.LLMStreamer, string, error) {
	provider := ProviderType(config.Provider)
	if provider == "" {
		provider = f.DetectProvider(config.Model)
	}
	streamer, err := f.Streamer(ctx, provider)
	if err != nil {
		return nil, "", err
	}
	model := f.NormalizeModel(config.Model)
	if model == "" {
		model = f.GetDefaultModel(provider)
	}
	return streamer, model, nil
}

// Streamer returns the cached streamer for provider, creating it on first use
func (f *ProviderFactory) Streamer(ctx context.Context, provider ProviderType) (interfaces.LLMStreamer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.streamers[provider]; ok {
		return s, nil
	}

	var (
		s   interfaces.LLMStreamer
		err error
	)
	switch provider {
	case ProviderClaude:
		s, err = f.newClaude(ctx)
	case ProviderGemini:
		s, err = f.newGemini(ctx)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", provider)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Info().
		Str("provider", string(provider)).
		Str("model", s.Model()).
		Msg("LLM streamer initialized")

	f.streamers[provider] = s
	return s, nil
}

func (f *ProviderFactory) newClaude(ctx context.Context) (interfaces.LLMStreamer, error) {
	apiKey, err := common.ResolveAPIKey(ctx, f.kvStorage, "anthropic_api_key", f.claudeConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Anthropic API key: %w", err)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(common.ParseDurationOr(f.claudeConfig.Timeout, defaultProviderTimeout)),
	)
	return NewClaudeStreamer(client, f.claudeConfig, f.retry, f.logger), nil
}

func (f *ProviderFactory) newGemini(ctx context.Context) (interfaces.LLMStreamer, error) {
	apiKey, err := common.ResolveAPIKey(ctx, f.kvStorage, "gemini_api_key", f.geminiConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Gemini API key: %w", err)
	}

	timeout := common.ParseDurationOr(f.geminiConfig.Timeout, defaultProviderTimeout)
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{Timeout: &timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return NewGeminiStreamer(client, f.geminiConfig, f.retry, f.logger), nil
}

// Close closes all provider clients
func (f *ProviderFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for name, s := range f.streamers {
		if err := s.Close(); err != nil {
			f.logger.Warn().Str("provider", string(name)).Err(err).Msg("Failed to close streamer")
		}
	}
	f.streamers = make(map[ProviderType]interfaces.LLMStreamer)
	return nil
}
