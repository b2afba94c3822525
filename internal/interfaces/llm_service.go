package interfaces

import (
	"context"
	"iter"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user" or "assistant"
	Role string

	// Content contains the text content of the message
	Content string
}

// StreamRequest is a provider-agnostic streaming completion request
type StreamRequest struct {
	SystemInstruction string
	Messages          []Message
	Model             string
	Temperature       float32
	MaxTokens         int
}

// LLMStreamer defines the streaming surface of a language model backend.
// Implementations wrap a hosted model client; the gateway is the only caller.
type LLMStreamer interface {
	// Stream sends the request and yields text increments as they arrive.
	//
	// Parameters:
	//   - ctx: Cancelling ctx ends the stream; the caller may also stop ranging early
	//   - request: System instruction plus the conversation to answer
	//
	// Returns:
	//   - iter.Seq2[string, error]: text increments; a non-nil error is the last element yielded
	Stream(ctx context.Context, request *StreamRequest) iter.Seq2[string, error]

	// Name returns the provider name used in logs and audit records ("claude", "gemini")
	Name() string

	// Model returns the model the provider will use when the request leaves Model empty
	Model() string

	// Close releases client resources
	Close() error
}
