package factory

import (
	"context"
	"fmt"

	"github.com/mikey/mail-threat-analyzer/internal/adapters/bedrock"
	"github.com/mikey/mail-threat-analyzer/internal/adapters/gemini"
	"github.com/mikey/mail-threat-analyzer/internal/adapters/openai"
	"github.com/mikey/mail-threat-analyzer/internal/config"
	"github.com/mikey/mail-threat-analyzer/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates verdict providers
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateVerdictProvider creates the configured provider. Provider "none"
// returns a nil provider, which makes every verdict heuristic.
func (f *LLMFactory) CreateVerdictProvider(ctx context.Context) (core.VerdictProvider, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "", "none":
		f.logger.Info("No verdict provider configured, using heuristic analysis only")
		return nil, nil
	case "bedrock":
		p, err := bedrock.NewFactory(f.cfg, f.logger).CreateProvider(ctx)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "gemini":
		p, err := gemini.NewFactory(f.cfg, f.logger).CreateProvider(ctx)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "openai":
		p, err := openai.NewFactory(f.cfg, f.logger).CreateProvider()
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
