package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mikey/mail-threat-analyzer/internal/core"
	"go.uber.org/zap"
)

// Analyzer runs one upload through the analysis pipeline
type Analyzer interface {
	Analyze(ctx context.Context, upload core.Upload) (*core.AnalysisRecord, error)
}

// Runner analyzes message files from the command line
type Runner struct {
	analyzer Analyzer
	printer  *Printer
	logger   *zap.Logger
	maxBytes int64
}

// NewRunner creates a new command-line runner. maxBytes <= 0 disables the
// size check.
func NewRunner(analyzer Analyzer, printer *Printer, maxBytes int64, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		analyzer: analyzer,
		printer:  printer,
		logger:   logger,
		maxBytes: maxBytes,
	}
}

// AnalyzeFile reads path, analyzes it and prints the record
func (r *Runner) AnalyzeFile(ctx context.Context, path string) (*core.AnalysisRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if r.maxBytes > 0 && info.Size() > r.maxBytes {
		return nil, fmt.Errorf("%s is %d bytes, larger than the %d byte limit", path, info.Size(), r.maxBytes)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	r.logger.Debug("Analyzing file", zap.String("path", path), zap.Int("size", len(content)))

	start := time.Now()
	record, err := r.analyzer.Analyze(ctx, core.Upload{
		FileName: filepath.Base(path),
		FileSize: int64(len(content)),
		Content:  content,
	})
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Analysis finished", zap.Duration("elapsed", time.Since(start)))

	if err := r.printer.Print(record); err != nil {
		return nil, fmt.Errorf("failed to print analysis: %w", err)
	}
	return record, nil
}
