package chat

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/medguard/internal/common"
	"github.com/ternarybob/medguard/internal/interfaces"
	"github.com/ternarybob/medguard/internal/models"
	"github.com/ternarybob/medguard/internal/services/assistant"
	"github.com/ternarybob/medguard/internal/services/consultation"
)

// ErrAssistantUnavailable is returned when no language model is configured
var ErrAssistantUnavailable = errors.New("assistant is not configured")

// Asker is the gateway surface the chat service needs
type Asker interface {
	Ask(ctx context.Context, cc *models.ConsultationContext, question string, opts ...assistant.AskOption) iter.Seq[assistant.Fragment]
}

// Service ties sessions to the pipeline and the assistant: documents load
// a context into a session, questions are answered against it and the
// transcript is kept on the session.
type Service struct {
	registry        *consultation.Registry
	builder         *consultation.Builder
	gateway         Asker
	redactor        interfaces.Redactor
	redactQuestions bool
	logger          arbor.ILogger
}

// NewService creates the chat service. gateway may be nil; Ask then fails
// with ErrAssistantUnavailable while documents can still be processed.
func NewService(
	registry *consultation.Registry,
	builder *consultation.Builder,
	gateway Asker,
	redactor interfaces.Redactor,
	redactionConfig *common.RedactionConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		registry:        registry,
		builder:         builder,
		gateway:         gateway,
		redactor:        redactor,
		redactQuestions: redactionConfig.RedactQuestions,
		logger:          logger,
	}
}

// AssistantAvailable reports whether questions can be answered
func (s *Service) AssistantAvailable() bool {
	return s.gateway != nil
}

// Registry exposes the session registry for listing and sweeping
func (s *Service) Registry() *consultation.Registry {
	return s.registry
}

// LoadDocument processes doc into a new context for sessionID, creating the
// session when sessionID is empty. The previous context and its transcript
// are dropped.
func (s *Service) LoadDocument(ctx context.Context, sessionID string, doc models.RawDocument) (*consultation.Session, *models.ConsultationContext, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return nil, nil, err
	}

	cc, err := s.builder.BuildFromDocument(ctx, doc)
	if err != nil {
		return session, nil, err
	}
	s.replace(session, cc)
	return session, cc, nil
}

// LoadText is LoadDocument for pasted text
func (s *Service) LoadText(ctx context.Context, sessionID string, text string) (*consultation.Session, *models.ConsultationContext, error) {
	return s.LoadDocument(ctx, sessionID, models.RawDocument{Data: []byte(text), MediaType: models.MediaTypeText})
}

func (s *Service) session(id string) (*consultation.Session, error) {
	if id == "" {
		return s.registry.Create(), nil
	}
	return s.registry.Get(id)
}

func (s *Service) replace(session *consultation.Session, cc *models.ConsultationContext) {
	dropped := session.Replace(cc)
	s.logger.Info().
		Str("session_id", session.ID()).
		Str("context_id", cc.ID()).
		Int("dropped_turns", dropped).
		Msg("Consultation context loaded")
}

// Session returns a session by id
func (s *Service) Session(id string) (*consultation.Session, error) {
	return s.registry.Get(id)
}

// Reset drops a session entirely
func (s *Service) Reset(id string) error {
	if !s.registry.Delete(id) {
		return consultation.ErrSessionNotFound
	}
	s.logger.Info().Str("session_id", id).Msg("Session reset")
	return nil
}

// Ask answers question against the session's current context. Errors are
// returned before any model call; once the sequence starts, failures arrive
// as a FragmentError. The exchange is appended to the transcript when the
// sequence ends, unless the context was replaced meanwhile.
func (s *Service) Ask(ctx context.Context, sessionID string, question string) (iter.Seq[assistant.Fragment], error) {
	if s.gateway == nil {
		return nil, ErrAssistantUnavailable
	}

	session, err := s.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	cc, generation, err := session.Context()
	if err != nil {
		return nil, err
	}
	if err := session.AllowQuestion(); err != nil {
		return nil, err
	}
	session.Touch()

	recorded := strings.TrimSpace(question)
	if s.redactQuestions {
		recorded = s.redactor.RedactRules(recorded)
	}

	fragments := s.gateway.Ask(ctx, cc, question, assistant.WithSessionID(session.ID()))

	return func(yield func(assistant.Fragment) bool) {
		asked := time.Now().UTC()
		var answer strings.Builder
		failed := false

		for f := range fragments {
			switch f.Kind {
			case assistant.FragmentText:
				answer.WriteString(f.Text)
			case assistant.FragmentError:
				failed = true
				answer.Reset()
				answer.WriteString(f.Text)
			}
			if !yield(f) {
				break
			}
		}

		err := session.Append(generation,
			models.ChatTurn{Role: models.RoleUser, Content: recorded, At: asked},
			models.ChatTurn{Role: models.RoleAssistant, Content: answer.String(), At: time.Now().UTC(), Failed: failed},
		)
		if errors.Is(err, consultation.ErrStaleContext) {
			s.logger.Debug().Str("session_id", session.ID()).Msg("Answer dropped, context was replaced")
		}
	}, nil
}
