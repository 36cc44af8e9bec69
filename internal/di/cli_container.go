package di

import (
	"io"
	"os"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-analyzer/internal/adapters/cli"
	"github.com/mikey/mail-threat-analyzer/internal/config"
	"github.com/mikey/mail-threat-analyzer/internal/core"
	"github.com/mikey/mail-threat-analyzer/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Verdict provider flags
	Provider string
	Model    string

	// Analysis flags
	NoDNS          bool
	TrustedDomains []string

	// Output flags
	Output  string
	Verbose bool
	JSONLog bool
	Stdout  io.Writer

	ConfigFile string
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		var cfg *config.Config
		if flags.ConfigFile != "" {
			var err error
			cfg, err = config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
		} else {
			cfg = config.NewFromEnv()
		}
		applyFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideAnalysis(container); err != nil {
		return nil, err
	}

	// Register printer and runner
	if err := container.Provide(func(flags *CLIFlags) (*cli.Printer, error) {
		out := flags.Stdout
		if out == nil {
			out = os.Stdout
		}
		return cli.NewPrinter(out, flags.Output, flags.Verbose)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		pipeline *core.AnalysisPipeline,
		printer *cli.Printer,
		cfg *config.Config,
		logger *zap.Logger,
	) *cli.Runner {
		return cli.NewRunner(pipeline, printer, cfg.GetHTTP().MaxUploadBytes, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// applyFlags lets command line flags override file and environment values.
// A one-shot run never needs a persistent store.
func applyFlags(cfg *config.Config, flags *CLIFlags) {
	v := cfg.GetViper()
	v.Set("store.type", "memory")

	if flags.Provider != "" {
		v.Set("llm.provider", flags.Provider)
	}
	if flags.Model != "" {
		switch cfg.GetLLM().Provider {
		case "openai":
			v.Set("openai.model_name", flags.Model)
		case "gemini":
			v.Set("gemini.model_name", flags.Model)
		case "bedrock":
			v.Set("bedrock.model_id", flags.Model)
		}
	}
	if flags.NoDNS {
		v.Set("dns.enabled", false)
	}
	if len(flags.TrustedDomains) > 0 {
		v.Set("heuristics.trusted_sender_domains", flags.TrustedDomains)
	}
}
