package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/mail-threat-analyzer/internal/metrics"
	"github.com/mikey/mail-threat-analyzer/internal/utils"
	"go.uber.org/zap"
)

// AnalysisPipeline is the core service: parse, then authenticate and score
// concurrently, then persist
type AnalysisPipeline struct {
	parser MessageParser
	auth   AuthenticationChecker
	scorer *RiskScorer
	store  AnalysisStore
	text   *utils.TextProcessor
	logger *zap.Logger
}

// NewAnalysisPipeline creates a new analysis pipeline
func NewAnalysisPipeline(
	parser MessageParser,
	auth AuthenticationChecker,
	scorer *RiskScorer,
	store AnalysisStore,
	text *utils.TextProcessor,
	logger *zap.Logger,
) *AnalysisPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if text == nil {
		text = utils.NewTextProcessor(logger)
	}
	return &AnalysisPipeline{
		parser: parser,
		auth:   auth,
		scorer: scorer,
		store:  store,
		text:   text,
		logger: logger,
	}
}

// Analyze runs one upload through the pipeline. Only a storage failure is
// returned; every other problem degrades inside its stage.
func (p *AnalysisPipeline) Analyze(ctx context.Context, upload Upload) (*AnalysisRecord, error) {
	start := time.Now()

	msg := p.parser.Parse(p.text.Decode(upload.Content), upload.FileName)

	var (
		wg      sync.WaitGroup
		authRes AuthenticationResult
		verdict RiskVerdict
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		authRes = p.auth.Check(ctx, msg.Headers.From, msg.DKIMSignature)
	}()
	go func() {
		defer wg.Done()
		verdict = p.scorer.Assess(ctx, msg)
	}()
	wg.Wait()

	fileSize := upload.FileSize
	if fileSize <= 0 {
		fileSize = int64(len(upload.Content))
	}

	record, err := p.store.Create(ctx, &NewAnalysis{
		FileName:       upload.FileName,
		FileSize:       fileSize,
		Headers:        msg.Headers,
		Authentication: authRes,
		Verdict:        verdict,
		Links:          msg.Links,
		Attachments:    msg.Attachments,
		Body:           msg.Body,
	})
	if err != nil {
		metrics.AnalysisFailures.Inc()
		p.logger.Error("Failed to store analysis",
			zap.String("file_name", upload.FileName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}

	metrics.AnalysesTotal.WithLabelValues(string(record.Verdict.RiskLevel)).Inc()
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())

	p.logger.Info("Email analyzed",
		zap.Int64("id", record.ID),
		zap.String("file_name", record.FileName),
		zap.String("from", record.Headers.From),
		zap.String("subject", record.Headers.Subject),
		zap.String("risk_level", string(record.Verdict.RiskLevel)),
		zap.Int("confidence", record.Verdict.Confidence),
		zap.String("model", record.Verdict.ModelUsed),
		zap.String("spf", string(record.Authentication.SPF)),
		zap.String("dkim", string(record.Authentication.DKIM)),
		zap.String("dmarc", string(record.Authentication.DMARC)),
		zap.Duration("elapsed", time.Since(start)))

	return record, nil
}

// Get returns a stored analysis by id
func (p *AnalysisPipeline) Get(ctx context.Context, id int64) (*AnalysisRecord, error) {
	return p.store.Get(ctx, id)
}

// Recent returns the most recent analyses, newest first
func (p *AnalysisPipeline) Recent(ctx context.Context, limit int) ([]*AnalysisRecord, error) {
	return p.store.ListRecent(ctx, limit)
}

// Stats aggregates every stored analysis
func (p *AnalysisPipeline) Stats(ctx context.Context) (*AnalysisStats, error) {
	return p.store.Stats(ctx)
}
