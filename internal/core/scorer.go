package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mikey/mail-threat-analyzer/internal/metrics"
	"go.uber.org/zap"
)

const (
	defaultAssessment = "Analysis completed"
	defaultConfidence = 50
)

// ErrMalformedVerdict is returned when a provider answer holds no JSON object
var ErrMalformedVerdict = errors.New("malformed verdict response")

// RiskScorer asks the verdict provider first and falls back to the
// heuristic on any provider failure
type RiskScorer struct {
	provider        VerdictProvider
	trusted         TrustedSenders
	timeout         time.Duration
	promptBodyChars int
	logger          *zap.Logger
}

// NewRiskScorer creates a scorer. A nil provider means every verdict comes
// from the heuristic.
func NewRiskScorer(
	provider VerdictProvider,
	trusted TrustedSenders,
	timeout time.Duration,
	promptBodyChars int,
	logger *zap.Logger,
) *RiskScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RiskScorer{
		provider:        provider,
		trusted:         trusted,
		timeout:         timeout,
		promptBodyChars: promptBodyChars,
		logger:          logger,
	}
}

// Assess returns a verdict for msg. It never fails.
func (s *RiskScorer) Assess(ctx context.Context, msg *ParsedMessage) RiskVerdict {
	if s.provider != nil {
		verdict, err := s.requestVerdict(ctx, msg)
		if err == nil {
			metrics.VerdictSource.WithLabelValues("provider").Inc()
			return verdict
		}
		s.logger.Warn("Verdict provider failed, using heuristic analysis", zap.Error(err))
	}

	metrics.VerdictSource.WithLabelValues("heuristic").Inc()
	return HeuristicVerdict(msg, s.trusted)
}

func (s *RiskScorer) requestVerdict(ctx context.Context, msg *ParsedMessage) (RiskVerdict, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	text, model, err := s.provider.RequestVerdict(ctx, BuildPrompt(msg, s.promptBodyChars))
	metrics.ProviderDuration.WithLabelValues(metrics.Success(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return RiskVerdict{}, err
	}

	verdict, err := ParseVerdict(text)
	if err != nil {
		return RiskVerdict{}, err
	}
	verdict.ModelUsed = model

	s.logger.Debug("Verdict provider answered",
		zap.String("model", model),
		zap.String("risk_level", string(verdict.RiskLevel)),
		zap.Int("confidence", verdict.Confidence),
		zap.Duration("elapsed", time.Since(start)))

	return verdict, nil
}

type providerAnswer struct {
	RiskLevel       any `json:"riskLevel"`
	Assessment      any `json:"assessment"`
	Confidence      any `json:"confidence"`
	Recommendations any `json:"recommendations"`
}

// ParseVerdict extracts the JSON object from a provider answer and
// normalizes it into a valid verdict
func ParseVerdict(text string) (RiskVerdict, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return RiskVerdict{}, ErrMalformedVerdict
	}

	var answer providerAnswer
	if err := json.Unmarshal([]byte(text[start:end+1]), &answer); err != nil {
		return RiskVerdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}

	return RiskVerdict{
		RiskLevel:       normalizeLevel(answer.RiskLevel),
		Assessment:      normalizeAssessment(answer.Assessment),
		Confidence:      normalizeConfidence(answer.Confidence),
		Recommendations: normalizeRecommendations(answer.Recommendations),
	}, nil
}

func normalizeLevel(v any) RiskLevel {
	s, _ := v.(string)
	switch level := RiskLevel(strings.ToUpper(strings.TrimSpace(s))); level {
	case RiskLow, RiskMedium, RiskHigh:
		return level
	default:
		return RiskMedium
	}
}

func normalizeAssessment(v any) string {
	s, _ := v.(string)
	if strings.TrimSpace(s) == "" {
		return defaultAssessment
	}
	return s
}

func normalizeConfidence(v any) int {
	var f float64
	switch c := v.(type) {
	case float64:
		f = c
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return defaultConfidence
		}
		f = parsed
	default:
		return defaultConfidence
	}
	if math.IsNaN(f) {
		return defaultConfidence
	}
	return int(math.Round(math.Max(0, math.Min(100, f))))
}

// normalizeRecommendations keeps distinct non-empty strings in order
func normalizeRecommendations(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
