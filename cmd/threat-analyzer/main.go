package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/mail-threat-analyzer/internal/di"
	"github.com/mikey/mail-threat-analyzer/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run starts every configured intake and blocks until a shutdown signal
func run(logger *zap.Logger, intakes []ports.Intake, res di.Resources) error {
	defer logger.Sync()
	defer res.Close(logger)

	started := make([]ports.Intake, 0, len(intakes))
	for _, intake := range intakes {
		if err := intake.Start(); err != nil {
			logger.Error("Failed to start intake", zap.Error(err))
			stopAll(logger, started)
			return err
		}
		started = append(started, intake)
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("Shutting down...", zap.String("signal", sig.String()))

	stopAll(logger, started)

	logger.Info("Shutdown complete")
	return nil
}

func stopAll(logger *zap.Logger, intakes []ports.Intake) {
	for _, intake := range intakes {
		if err := intake.Stop(); err != nil {
			logger.Error("Failed to stop intake", zap.Error(err))
		}
	}
}
