package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gpt-4o-mini"

// OpenAI implements Generator with the chat completions API.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI generator. Extra request options are passed to
// the client, which is how tests point it at a local server.
func NewOpenAI(apiKey, model string, opts ...option.RequestOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrDisabled)
	}
	if model == "" {
		model = DefaultModel
	}

	return &OpenAI{
		client: openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
		model:  model,
	}, nil
}

// GenerateConfirmation implements Generator
func (o *OpenAI) GenerateConfirmation(ctx context.Context, in ConfirmationInput) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(in)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate confirmation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}

	msg := strings.TrimSpace(resp.Choices[0].Message.Content)
	if msg == "" {
		return "", ErrEmptyReply
	}
	return msg, nil
}
