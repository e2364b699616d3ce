package providers

import (
	"fmt"
	"strings"

	"github.com/sipeed/cinebot/pkg/config"
	"github.com/sipeed/cinebot/pkg/domain"
)

// CreateProvider builds the backend selected by cfg.Provider. It returns
// ErrNoCredential when the selected provider has no key.
func CreateProvider(cfg config.ChatConfig) (Provider, error) {
	if !cfg.Enabled() {
		return nil, ErrNoCredential
	}
	switch domain.ProviderType(strings.ToLower(strings.TrimSpace(cfg.Provider))) {
	case "", domain.ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.APIBase, cfg.Model, cfg.MaxTokens), nil
	case domain.ProviderAnthropic:
		return NewAnthropicProvider(cfg.AnthropicKey, cfg.Model, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
