package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-analyzer/internal/adapters/cli"
	"github.com/mikey/mail-threat-analyzer/internal/core"
	"github.com/mikey/mail-threat-analyzer/internal/di"
)

// exitHighRisk is the exit status of analyze --fail-on-high for a HIGH verdict
const exitHighRisk = 2

var errHighRisk = errors.New("message assessed as HIGH risk")

func main() {
	flags := &di.CLIFlags{}
	var failOnHigh bool

	rootCmd := &cobra.Command{
		Use:           "threat-check",
		Short:         "Assess an email message for phishing and spoofing risk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.ConfigFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&flags.Verbose, "verbose", false, "enable debug logging and body preview")
	rootCmd.PersistentFlags().BoolVar(&flags.JSONLog, "json-log", false, "output logs in JSON format")

	analyzeCmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyze a single .eml, .msg or .txt file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := analyze(cmd.Context(), flags, args[0])
			if err != nil {
				return err
			}
			if failOnHigh && record.Verdict.RiskLevel == core.RiskHigh {
				return errHighRisk
			}
			return nil
		},
	}
	analyzeCmd.Flags().StringVar(&flags.Provider, "provider", "", "verdict provider (openai, gemini, bedrock, none)")
	analyzeCmd.Flags().StringVar(&flags.Model, "model", "", "model name or ID for the chosen provider")
	analyzeCmd.Flags().StringVarP(&flags.Output, "output", "o", cli.FormatPretty, "output format (pretty, json, yaml)")
	analyzeCmd.Flags().BoolVar(&flags.NoDNS, "no-dns", false, "skip SPF, DKIM and DMARC lookups")
	analyzeCmd.Flags().StringSliceVar(&flags.TrustedDomains, "trusted-domain", nil, "sender domain exempt from the sender heuristic (repeatable)")
	analyzeCmd.Flags().BoolVar(&failOnHigh, "fail-on-high", false, "exit with status 2 when the risk level is HIGH")

	rootCmd.AddCommand(analyzeCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()
	switch {
	case errors.Is(err, errHighRisk):
		os.Exit(exitHighRisk)
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func analyze(ctx context.Context, flags *di.CLIFlags, path string) (*core.AnalysisRecord, error) {
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency container: %w", err)
	}

	var record *core.AnalysisRecord
	err = container.Invoke(func(runner *cli.Runner, logger *zap.Logger, res di.Resources) error {
		defer logger.Sync()
		defer res.Close(logger)

		var err error
		record, err = runner.AnalyzeFile(ctx, path)
		return err
	})
	return record, err
}
