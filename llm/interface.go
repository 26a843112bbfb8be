// Package llm wraps external large-language-model providers behind a single
// completion interface.
package llm

import (
	"context"
	"errors"
)

// Failure classes of the generation boundary.
var (
	// ErrProviderUnavailable marks transient provider failures
	// (connectivity, rate limits, 5xx).
	ErrProviderUnavailable = errors.New("llm provider unavailable")
	// ErrRequestRejected marks permanent rejections of the request
	// (e.g. prompt exceeds the model's context window).
	ErrRequestRejected = errors.New("llm request rejected")
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// NewSystemMessage creates a system-role message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: content}
}

// LLM is the interface for interacting with language models.
type LLM interface {
	// Complete generates a completion for a given prompt.
	Complete(ctx context.Context, prompt string) (string, error)
	// Chat generates a response for a list of chat messages.
	Chat(ctx context.Context, messages []ChatMessage) (string, error)
}
