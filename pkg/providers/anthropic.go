package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/sipeed/cinebot/pkg/conversation"
	"github.com/sipeed/cinebot/pkg/domain"
)

// AnthropicProvider talks to the Messages API.
type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropicProvider(apiKey, model string, maxTokens int64, opts ...option.RequestOption) *AnthropicProvider {
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	if model == "" || strings.HasPrefix(model, "gpt-") {
		model = defaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &AnthropicProvider{
		client:    anthropic.NewClient(reqOpts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (p *AnthropicProvider) Name() string  { return string(domain.ProviderAnthropic) }
func (p *AnthropicProvider) Model() string { return p.model }

// Complete sends turns to the Messages API. System turns become the system
// prompt; the text blocks of the reply are concatenated.
func (p *AnthropicProvider) Complete(ctx context.Context, turns []conversation.Turn) (string, error) {
	system, messages := toAnthropicMessages(turns)
	if len(messages) == 0 {
		return "", ErrNoUserTurn
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages:  messages,
	}
	if len(system) > 0 {
		params.System = system
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func toAnthropicMessages(turns []conversation.Turn) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case domain.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: t.Content})
		case domain.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Content)))
		}
	}
	return system, messages
}
