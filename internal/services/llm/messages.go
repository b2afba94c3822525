package llm

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ternarybob/medguard/internal/interfaces"
	"google.golang.org/genai"
)

// validateMessages requires at least one user message
func validateMessages(messages []interfaces.Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("messages cannot be empty")
	}
	for _, msg := range messages {
		if msg.Role == "user" {
			return nil
		}
	}
	return fmt.Errorf("at least one message must have role 'user'")
}

// convertMessagesToClaude maps roles to Claude's and keeps chronological order.
// Unknown roles are sent as user messages.
func convertMessagesToClaude(messages []interfaces.Message) ([]anthropic.MessageParam, error) {
	if err := validateMessages(messages); err != nil {
		return nil, err
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "assistant":
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		default:
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}
	return claudeMessages, nil
}

// convertMessagesToGemini maps "assistant" to the model role
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, error) {
	if err := validateMessages(messages); err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := genai.RoleUser
		if msg.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}
	return contents, nil
}
