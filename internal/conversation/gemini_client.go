package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider implements Provider using Google's Gemini API.
type GeminiProvider struct {
	name    string
	client  *genai.Client
	modelID string
	params  InferenceParams
}

// NewGeminiProvider creates a Gemini-backed provider. The client outlives
// ctx only if ctx is not cancelled, so callers building from a short-lived
// context should detach it first.
func NewGeminiProvider(ctx context.Context, name, apiKey, modelID string, params InferenceParams) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = DefaultGeminiModel
	}
	if strings.TrimSpace(name) == "" {
		name = "gemini:" + modelID
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to create gemini client: %w", err)
	}

	return &GeminiProvider{
		name:    name,
		client:  client,
		modelID: modelID,
		params:  params,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return p.name
}

func (p *GeminiProvider) Invoke(ctx context.Context, msgs []Message) (Message, error) {
	model := p.client.GenerativeModel(p.modelID)
	if p.params.Temperature >= 0 {
		model.SetTemperature(p.params.Temperature)
	}
	if p.params.MaxTokens > 0 {
		model.SetMaxOutputTokens(p.params.MaxTokens)
	}

	system, history, last, err := geminiTurns(msgs)
	if err != nil {
		return Message{}, &ProviderError{Provider: p.name, Op: "invoke", Err: err}
	}
	if system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}

	cs := model.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return Message{}, &ProviderError{Provider: p.name, Op: "invoke", Err: err}
	}

	content, err := geminiContent(resp)
	if err != nil {
		return Message{}, &ProviderError{Provider: p.name, Op: "invoke", Err: err}
	}
	return Message{Role: RoleAssistant, Content: content}, nil
}

// Close releases resources held by the Gemini client.
func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// geminiTurns splits msgs into the system instruction, prior chat history and
// the final user text that is sent.
func geminiTurns(msgs []Message) (string, []*genai.Content, string, error) {
	if len(msgs) == 0 {
		return "", nil, "", errors.New("gemini requires at least one message")
	}

	var system []string
	history := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs[:len(msgs)-1] {
		text, err := Normalize(m.Content)
		if err != nil {
			return "", nil, "", err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		switch m.Role {
		case RoleSystem:
			system = append(system, text)
		case RoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(text)}})
		default:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(text)}})
		}
	}

	last, err := Normalize(msgs[len(msgs)-1].Content)
	if err != nil {
		return "", nil, "", err
	}
	return strings.Join(system, "\n\n"), history, last, nil
}

// geminiContent maps the first candidate onto PartsContent.
func geminiContent(resp *genai.GenerateContentResponse) (Content, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, errors.New("gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, errors.New("gemini returned empty content")
	}

	parts := make([]Part, 0, len(candidate.Content.Parts))
	for _, part := range candidate.Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			parts = append(parts, TextPart{Type: "text", Text: string(v)})
		case genai.Blob:
			parts = append(parts, DataPart{Type: "blob"})
		case genai.FunctionCall:
			parts = append(parts, DataPart{Type: "function_call"})
		default:
			parts = append(parts, DataPart{Type: fmt.Sprintf("%T", v)})
		}
	}
	return PartsContent{Parts: parts}, nil
}
