package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/sipeed/cinebot/pkg/conversation"
	"github.com/sipeed/cinebot/pkg/domain"
)

// OpenAIProvider talks to the Chat Completions API, or to any
// OpenAI-compatible endpoint when a base URL is given.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// NewOpenAIProvider creates a provider. apiBase may be empty.
func NewOpenAIProvider(apiKey, apiBase, model string, maxTokens int64, opts ...option.RequestOption) *OpenAIProvider {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if base := strings.TrimSpace(apiBase); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	reqOpts = append(reqOpts, opts...)

	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIProvider{
		client:    openai.NewClient(reqOpts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (p *OpenAIProvider) Name() string  { return string(domain.ProviderOpenAI) }
func (p *OpenAIProvider) Model() string { return p.model }

// Complete sends turns as chat messages and returns the first choice.
func (p *OpenAIProvider) Complete(ctx context.Context, turns []conversation.Turn) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: toOpenAIMessages(turns),
	}
	if p.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(p.maxTokens)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(turns []conversation.Turn) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case domain.RoleSystem:
			out = append(out, openai.SystemMessage(t.Content))
		case domain.RoleAssistant:
			out = append(out, openai.AssistantMessage(t.Content))
		default:
			out = append(out, openai.UserMessage(t.Content))
		}
	}
	return out
}
