package assistant

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/ternarybob/medguard/internal/models"
	"github.com/ternarybob/medguard/internal/services/llm"
)

// FragmentKind distinguishes model text from an inline failure
type FragmentKind string

const (
	FragmentText  FragmentKind = "text"
	FragmentError FragmentKind = "error"
)

// Fragment is one increment of an answer
type Fragment struct {
	Kind FragmentKind `json:"kind"`
	Text string       `json:"text"`
}

// Gateway answers questions about a consultation with a language model.
// A Gateway is safe for concurrent use; every Ask owns its own stream.
type Gateway struct {
	streamer        interfaces.LLMStreamer
	redactor        interfaces.Redactor
	audit           llm.AuditLogger
	model           string
	temperature     float32
	maxTokens       int
	timeout         time.Duration
	redactQuestions bool
	logger          arbor.ILogger
}

// NewGateway builds a gateway. model may be empty to use the streamer's default;
// audit may be nil to disable auditing.
func NewGateway(
	streamer interfaces.LLMStreamer,
	redactor interfaces.Redactor,
	audit llm.AuditLogger,
	model string,
	assistantConfig *common.AssistantConfig,
	redactionConfig *common.RedactionConfig,
	logger arbor.ILogger,
) *Gateway {
	if audit == nil {
		audit = llm.NullAuditLogger{}
	}
	return &Gateway{
		streamer:        streamer,
		redactor:        redactor,
		audit:           audit,
		model:           model,
		temperature:     assistantConfig.Temperature,
		maxTokens:       assistantConfig.MaxTokens,
		timeout:         common.ParseDurationOr(assistantConfig.Timeout, 2*time.Minute),
		redactQuestions: redactionConfig.RedactQuestions,
		logger:          logger,
	}
}

// Provider names the backing model service
func (g *Gateway) Provider() string { return g.streamer.Name() }

// Model returns the model questions are sent to
func (g *Gateway) Model() string {
	if g.model != "" {
		return g.model
	}
	return g.streamer.Model()
}

type askOptions struct {
	sessionID string
}

// AskOption adjusts a single Ask call
type AskOption func(*askOptions)

// WithSessionID tags the audit record with the owning session
func WithSessionID(id string) AskOption {
	return func(o *askOptions) { o.sessionID = id }
}

var (
	errNoContext     = errors.New("no consultation context")
	errEmptyQuestion = errors.New("question is empty")
)

// Ask streams the answer to question. A transport or service failure ends
// the sequence with exactly one FragmentError. Breaking out of the range
// cancels the model call.
func (g *Gateway) Ask(ctx context.Context, cc *models.ConsultationContext, question string, opts ...AskOption) iter.Seq[Fragment] {
	var o askOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(yield func(Fragment) bool) {
		if cc == nil {
			yield(g.failure(errNoContext))
			return
		}
		question = strings.TrimSpace(question)
		if question == "" {
			yield(g.failure(errEmptyQuestion))
			return
		}
		if g.redactQuestions {
			question = g.redactor.RedactRules(question)
		}

		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		start := time.Now()
		record := &models.GatewayAudit{
			ID:            common.NewAuditID(),
			SessionID:     o.sessionID,
			ContextID:     cc.ID(),
			Provider:      g.streamer.Name(),
			Model:         g.Model(),
			RiskTier:      cc.Risk().Tier,
			QuestionChars: utf8.RuneCountInString(question),
			Timestamp:     start.UTC(),
		}

		request := &interfaces.StreamRequest{
			SystemInstruction: BuildSystemPrompt(cc),
			Messages:          []interfaces.Message{{Role: "user", Content: question}},
			Model:             g.model,
			Temperature:       g.temperature,
			MaxTokens:         g.maxTokens,
		}

		var streamErr error
		stopped := false
		for text, err := range g.streamer.Stream(ctx, request) {
			if err != nil {
				streamErr = err
				break
			}
			record.Fragments++
			record.ResponseChars += utf8.RuneCountInString(text)
			if !yield(Fragment{Kind: FragmentText, Text: text}) {
				stopped = true
				break
			}
		}

		record.Duration = time.Since(start)
		record.Success = streamErr == nil
		if streamErr != nil {
			record.Error = streamErr.Error()
		}
		g.record(record, stopped)

		if streamErr != nil {
			yield(g.failure(streamErr))
		}
	}
}

// record writes the audit entry on a fresh context so a cancelled request is still audited
func (g *Gateway) record(record *models.GatewayAudit, stopped bool) {
	event := g.logger.Info()
	if !record.Success {
		event = g.logger.Warn()
	}
	event.
		Str("context_id", record.ContextID).
		Str("provider", record.Provider).
		Str("model", record.Model).
		Int("fragments", record.Fragments).
		Int("response_chars", record.ResponseChars).
		Bool("stopped_early", stopped).
		Bool("success", record.Success).
		Dur("duration", record.Duration).
		Msg("Assistant call finished")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.audit.Record(ctx, record); err != nil {
		g.logger.Warn().Err(err).Str("audit_id", record.ID).Msg("Failed to record assistant call")
	}
}

func (g *Gateway) failure(cause error) Fragment {
	err := &models.GatewayFailure{Provider: g.streamer.Name(), Cause: cause}
	return Fragment{Kind: FragmentError, Text: err.Error()}
}

// Collect drains a fragment sequence into the answer text and the failure, if any
func Collect(fragments iter.Seq[Fragment]) (answer string, failure string) {
	var b strings.Builder
	for f := range fragments {
		switch f.Kind {
		case FragmentText:
			b.WriteString(f.Text)
		case FragmentError:
			failure = f.Text
		}
	}
	return b.String(), failure
}
