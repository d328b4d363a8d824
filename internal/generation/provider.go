// Package generation produces answers through ordered LLM providers with
// retry, fallback, and cost accounting.
package generation

import (
	"context"
	"errors"
)

// ErrAllProvidersFailed is returned internally when every configured provider
// exhausted its attempts. The generator converts it into a soft apology
// answer; callers never surface it to users.
var ErrAllProvidersFailed = errors.New("all generation providers failed")

// Completion is one successful provider response.
type Completion struct {
	Text             string
	PromptTokens     int64
	CompletionTokens int64
}

// Provider is a chat-completion backend. Implementations must honor context
// cancellation and return the provider's reported token usage.
type Provider interface {
	// Name identifies the provider in cost accounting and responses.
	Name() string
	// Model is the concrete model identifier sent over the wire.
	Model() string
	// Temperature is the sampling temperature sent with each request.
	Temperature() float64
	// Generate produces a completion for the system and user prompts.
	Generate(ctx context.Context, system, user string) (*Completion, error)
}
