package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikey/mail-threat-analyzer/internal/core"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Provider is an implementation of the VerdictProvider interface using OpenAI
type Provider struct {
	client      *openai.Client
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewProvider creates a new OpenAI verdict provider
func NewProvider(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

// RequestVerdict sends the prompt as a chat completion and returns the
// first choice
func (p *Provider) RequestVerdict(ctx context.Context, req core.VerdictRequest) (string, string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: p.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: req.SystemInstruction,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
		TopP:        p.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", "", errors.New("empty response from OpenAI")
	}

	model := resp.Model
	if model == "" {
		model = p.modelName
	}

	p.logger.Debug("OpenAI completion received",
		zap.String("id", resp.ID),
		zap.String("model", model),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return resp.Choices[0].Message.Content, model, nil
}
