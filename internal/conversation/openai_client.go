package conversation

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider talks to any OpenAI-compatible chat completions API
// (OpenAI itself, Groq).
type OpenAIProvider struct {
	name   string
	model  string
	params InferenceParams
	client chatClient
}

// NewOpenAICompatibleClient builds the HTTP client for an OpenAI-compatible
// endpoint. An empty baseURL targets api.openai.com.
func NewOpenAICompatibleClient(apiKey, baseURL string) (*openai.Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: api key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg), nil
}

func NewOpenAIProvider(name, model string, client chatClient, params InferenceParams) *OpenAIProvider {
	if client == nil {
		panic("conversation: chat client cannot be nil")
	}
	if strings.TrimSpace(name) == "" {
		name = model
	}
	return &OpenAIProvider{name: name, model: model, params: params, client: client}
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) Invoke(ctx context.Context, msgs []Message) (Message, error) {
	if strings.TrimSpace(p.model) == "" {
		return Message{}, &ProviderError{Provider: p.name, Op: "invoke", Err: errors.New("model is required")}
	}

	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(msgs)),
		Temperature: p.params.Temperature,
		MaxTokens:   int(p.params.MaxTokens),
	}
	for _, m := range msgs {
		text, err := Normalize(m.Content)
		if err != nil {
			return Message{}, &ProviderError{Provider: p.name, Op: "invoke", Err: err}
		}
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    openAIRole(m.Role),
			Content: text,
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Message{}, &ProviderError{Provider: p.name, Op: "invoke", Err: err}
	}
	if len(resp.Choices) == 0 {
		return Message{}, &ProviderError{Provider: p.name, Op: "invoke", Err: errors.New("no choices returned")}
	}
	return Message{Role: RoleAssistant, Content: openAIContent(resp.Choices[0].Message)}, nil
}

func openAIRole(r Role) string {
	switch r {
	case RoleSystem:
		return openai.ChatMessageRoleSystem
	case RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

// openAIContent maps a completion message onto Content. Multi-part answers
// keep their parts; non-text parts carry no text.
func openAIContent(m openai.ChatCompletionMessage) Content {
	if len(m.MultiContent) == 0 {
		return TextContent{Text: m.Content}
	}
	parts := make([]Part, 0, len(m.MultiContent))
	for _, part := range m.MultiContent {
		if part.Type == openai.ChatMessagePartTypeText {
			parts = append(parts, TextPart{Type: string(part.Type), Text: part.Text})
			continue
		}
		parts = append(parts, DataPart{Type: string(part.Type)})
	}
	return PartsContent{Parts: parts}
}
