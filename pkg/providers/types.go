// Package providers adapts generative model SDKs to conversation.Backend.
package providers

import "github.com/sipeed/cinebot/pkg/conversation"

type ProviderError string

func (e ProviderError) Error() string { return string(e) }

const (
	ErrNoCredential    ProviderError = "no backend credential configured"
	ErrUnknownProvider ProviderError = "unknown backend provider"
	ErrNoChoices       ProviderError = "backend returned no choices"
	ErrNoUserTurn      ProviderError = "conversation has no user turn"
)

const (
	defaultOpenAIModel    = "gpt-3.5-turbo"
	defaultAnthropicModel = "claude-3-5-haiku-latest"
	defaultMaxTokens      = 1024
)

// Provider is a conversation backend bound to one model.
type Provider interface {
	conversation.Backend
	Name() string
	Model() string
}

var (
	_ Provider = (*OpenAIProvider)(nil)
	_ Provider = (*AnthropicProvider)(nil)
)
