package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/mail-threat-analyzer/internal/core"
	"go.uber.org/zap"
)

const anthropicVersion = "bedrock-2023-05-31"

// InvokeModelAPI is the part of the bedrockruntime client the provider needs
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Provider is an implementation of the VerdictProvider interface using Amazon Bedrock
type Provider struct {
	client      InvokeModelAPI
	modelID     string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewProvider creates a new Bedrock verdict provider
func NewProvider(
	client InvokeModelAPI,
	modelID string,
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
		modelID:     modelID,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

// RequestVerdict invokes the model with a body shaped for its family
func (p *Provider) RequestVerdict(ctx context.Context, req core.VerdictRequest) (string, string, error) {
	payload, err := p.buildPayload(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	text, err := p.extractText(resp.Body)
	if err != nil {
		return "", "", err
	}
	return text, p.modelID, nil
}

func (p *Provider) buildPayload(req core.VerdictRequest) ([]byte, error) {
	switch {
	case p.isAnthropicModel():
		return json.Marshal(map[string]interface{}{
			"anthropic_version": anthropicVersion,
			"max_tokens":        p.maxTokens,
			"system":            req.SystemInstruction,
			"messages": []map[string]string{
				{"role": "user", "content": req.Prompt},
			},
			"temperature": p.temperature,
			"top_p":       p.topP,
		})
	case p.isAmazonTitanModel():
		// Titan has no system role
		return json.Marshal(map[string]interface{}{
			"inputText": joinPrompt(req),
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": p.maxTokens,
				"temperature":   p.temperature,
				"topP":          p.topP,
			},
		})
	default:
		return json.Marshal(map[string]interface{}{
			"prompt":      joinPrompt(req),
			"max_tokens":  p.maxTokens,
			"temperature": p.temperature,
			"top_p":       p.topP,
		})
	}
}

func (p *Provider) extractText(body []byte) (string, error) {
	switch {
	case p.isAnthropicModel():
		var claudeResp struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		var sb strings.Builder
		for _, c := range claudeResp.Content {
			if c.Type == "text" {
				sb.WriteString(c.Text)
			}
		}
		if sb.Len() == 0 {
			return "", errors.New("empty response from Claude model")
		}
		return sb.String(), nil

	case p.isAmazonTitanModel():
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", errors.New("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil

	default:
		var genericResp struct {
			Output     string `json:"output"`
			Text       string `json:"text"`
			Response   string `json:"response"`
			Generation string `json:"generation"`
		}
		if err := json.Unmarshal(body, &genericResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
		}
		for _, s := range []string{genericResp.Output, genericResp.Text, genericResp.Response, genericResp.Generation} {
			if s != "" {
				return s, nil
			}
		}
		p.logger.Debug("Unrecognised Bedrock response shape, using raw body", zap.String("model_id", p.modelID))
		return string(body), nil
	}
}

func joinPrompt(req core.VerdictRequest) string {
	if req.SystemInstruction == "" {
		return req.Prompt
	}
	return req.SystemInstruction + "\n\n" + req.Prompt
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func (p *Provider) isAnthropicModel() bool {
	return strings.Contains(p.modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (p *Provider) isAmazonTitanModel() bool {
	return strings.HasPrefix(p.modelID, "amazon.titan")
}
