package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/mail-threat-analyzer/internal/core"
	"go.uber.org/zap"
)

type generateFunc func(ctx context.Context, systemInstruction, prompt string) (*genai.GenerateContentResponse, error)

// Provider is an implementation of the VerdictProvider interface using Google Gemini
type Provider struct {
	client    *genai.Client
	modelName string
	generate  generateFunc
	logger    *zap.Logger
}

// NewProvider creates a new Gemini verdict provider
func NewProvider(
	client *genai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{
		client:    client,
		modelName: modelName,
		logger:    logger,
	}
	p.generate = func(ctx context.Context, systemInstruction, prompt string) (*genai.GenerateContentResponse, error) {
		// GenerativeModel is cheap and not safe to mutate concurrently
		model := client.GenerativeModel(modelName)
		model.SetTemperature(temperature)
		model.SetTopP(topP)
		model.SetMaxOutputTokens(int32(maxTokens))
		model.ResponseMIMEType = "application/json"
		if systemInstruction != "" {
			model.SystemInstruction = genai.NewUserContent(genai.Text(systemInstruction))
		}
		return model.GenerateContent(ctx, genai.Text(prompt))
	}
	return p
}

// Close closes the Gemini client
func (p *Provider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// RequestVerdict generates content for the prompt and returns the text of
// the first candidate
func (p *Provider) RequestVerdict(ctx context.Context, req core.VerdictRequest) (string, string, error) {
	resp, err := p.generate(ctx, req.SystemInstruction, req.Prompt)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", "", fmt.Errorf("prompt blocked by Gemini: %v", resp.PromptFeedback.BlockReason)
	}

	text := candidateText(resp)
	if text == "" {
		return "", "", errors.New("empty response from Gemini")
	}

	return text, p.modelName, nil
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}
