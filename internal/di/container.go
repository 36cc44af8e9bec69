package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-analyzer/internal/auth"
	"github.com/mikey/mail-threat-analyzer/internal/config"
	"github.com/mikey/mail-threat-analyzer/internal/core"
	"github.com/mikey/mail-threat-analyzer/internal/factory"
	"github.com/mikey/mail-threat-analyzer/internal/logging"
	"github.com/mikey/mail-threat-analyzer/internal/parser"
	"github.com/mikey/mail-threat-analyzer/internal/ports"
	"github.com/mikey/mail-threat-analyzer/internal/utils"
	"github.com/mikey/mail-threat-analyzer/internal/whitelist"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideAnalysis(container); err != nil {
		return nil, err
	}

	// Register intakes
	if err := container.Provide(factory.NewIntakeFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.IntakeFactory) ([]ports.Intake, error) {
		return f.CreateIntakes()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideAnalysis registers everything between a *config.Config plus a
// *zap.Logger and the analysis pipeline
func provideAnalysis(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewResolverFactory); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}

	// Register verdict provider (nil when llm.provider is none)
	if err := container.Provide(func(f *factory.LLMFactory) (core.VerdictProvider, error) {
		return f.CreateVerdictProvider(context.Background())
	}); err != nil {
		return err
	}

	// Register store
	if err := container.Provide(func(f *factory.StoreFactory) (factory.Store, error) {
		return f.CreateStore(context.Background())
	}); err != nil {
		return err
	}
	if err := container.Provide(func(s factory.Store) core.AnalysisStore {
		return s
	}); err != nil {
		return err
	}

	// Register DNS resolver and authentication checker
	if err := container.Provide(func(f *factory.ResolverFactory) (auth.TXTResolver, error) {
		return f.CreateResolver(context.Background())
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.ResolverFactory, r auth.TXTResolver) (core.AuthenticationChecker, error) {
		return f.CreateChecker(r)
	}); err != nil {
		return err
	}

	// Register trusted sender domains
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.TrustedSenders {
		return whitelist.NewChecker(cfg.GetAnalysis().TrustedSenderDomains, logger)
	}); err != nil {
		return err
	}

	// Register parser
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.MessageParser {
		return parser.New(logger, cfg.GetAnalysis().UnknownAttachmentSize)
	}); err != nil {
		return err
	}

	// Register risk scorer
	if err := container.Provide(func(
		cfg *config.Config,
		provider core.VerdictProvider,
		trusted core.TrustedSenders,
		logger *zap.Logger,
	) *core.RiskScorer {
		return core.NewRiskScorer(
			provider,
			trusted,
			cfg.GetLLM().Timeout,
			cfg.GetAnalysis().PromptBodyChars,
			logger,
		)
	}); err != nil {
		return err
	}

	// Register analysis pipeline
	return container.Provide(core.NewAnalysisPipeline)
}

// Resources are the long-lived dependencies released at shutdown
type Resources struct {
	dig.In

	Provider core.VerdictProvider
	Store    factory.Store
	Resolver auth.TXTResolver
}

// Close releases every resource that holds a connection or goroutine
func (r Resources) Close(logger *zap.Logger) {
	if closer, ok := r.Provider.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close verdict provider", zap.Error(err))
		}
	}
	if stopper, ok := r.Resolver.(ports.Stopper); ok {
		stopper.Stop()
	}
	if r.Store != nil {
		r.Store.Stop()
	}
}
