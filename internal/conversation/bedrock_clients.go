package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const DefaultBedrockModel = "anthropic.claude-3-haiku-20240307-v1:0"

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockProvider implements Provider over the Bedrock Converse API.
type BedrockProvider struct {
	name    string
	api     bedrockConverseAPI
	modelID string
	params  InferenceParams
}

func NewBedrockProvider(name string, api bedrockConverseAPI, modelID string, params InferenceParams) *BedrockProvider {
	if api == nil {
		panic("conversation: bedrock converse client cannot be nil")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = DefaultBedrockModel
	}
	if strings.TrimSpace(name) == "" {
		name = "bedrock:" + modelID
	}
	return &BedrockProvider{name: name, api: api, modelID: modelID, params: params}
}

func (p *BedrockProvider) Name() string {
	return p.name
}

func (p *BedrockProvider) Invoke(ctx context.Context, msgs []Message) (Message, error) {
	systemBlocks := make([]brtypes.SystemContentBlock, 0, 1)
	messages := make([]brtypes.Message, 0, len(msgs))
	for _, msg := range msgs {
		text, err := Normalize(msg.Content)
		if err != nil {
			return Message{}, &ProviderError{Provider: p.name, Op: "invoke", Err: err}
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		switch msg.Role {
		case RoleSystem:
			systemBlocks = append(systemBlocks, &brtypes.SystemContentBlockMemberText{Value: text})
		case RoleUser:
			messages = append(messages, brtypes.Message{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
			})
		case RoleAssistant:
			messages = append(messages, brtypes.Message{
				Role:    brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
			})
		default:
			return Message{}, &ProviderError{Provider: p.name, Op: "invoke", Err: fmt.Errorf("unsupported role %q", msg.Role)}
		}
	}

	inference := &brtypes.InferenceConfiguration{}
	if p.params.MaxTokens > 0 {
		inference.MaxTokens = aws.Int32(p.params.MaxTokens)
	}
	// A negative temperature leaves the model default in place.
	if p.params.Temperature >= 0 {
		inference.Temperature = aws.Float32(p.params.Temperature)
	}

	out, err := p.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(p.modelID),
		System:          systemBlocks,
		Messages:        messages,
		InferenceConfig: inference,
	})
	if err != nil {
		return Message{}, &ProviderError{Provider: p.name, Op: "invoke", Err: err}
	}

	content, err := bedrockContent(out)
	if err != nil {
		return Message{}, &ProviderError{Provider: p.name, Op: "invoke", Err: err}
	}
	return Message{Role: RoleAssistant, Content: content}, nil
}

// bedrockContent maps Converse output blocks onto PartsContent.
func bedrockContent(out *bedrockruntime.ConverseOutput) (Content, error) {
	if out == nil {
		return nil, errors.New("bedrock response is nil")
	}
	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return nil, errors.New("bedrock response did not include a message output")
	}
	if len(msgOut.Value.Content) == 0 {
		return nil, errors.New("bedrock response message was empty")
	}

	parts := make([]Part, 0, len(msgOut.Value.Content))
	for _, block := range msgOut.Value.Content {
		switch v := block.(type) {
		case *brtypes.ContentBlockMemberText:
			parts = append(parts, TextPart{Type: "text", Text: v.Value})
		case *brtypes.ContentBlockMemberToolUse:
			parts = append(parts, DataPart{Type: "tool_use"})
		case *brtypes.ContentBlockMemberImage:
			parts = append(parts, DataPart{Type: "image"})
		default:
			parts = append(parts, DataPart{Type: "unknown"})
		}
	}
	return PartsContent{Parts: parts}, nil
}
