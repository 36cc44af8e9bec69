package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeParser struct {
	msg *ParsedMessage
	raw string
}

func (p *fakeParser) Parse(raw string, fileName string) *ParsedMessage {
	p.raw = raw
	return p.msg
}

type fakeAuth struct {
	from, dkim string
}

func (a *fakeAuth) Check(ctx context.Context, from string, dkim string) AuthenticationResult {
	a.from, a.dkim = from, dkim
	return AuthenticationResult{SPF: AuthPass, DKIM: AuthFail, DMARC: AuthNeutral}
}

type fakeStore struct {
	mu      sync.Mutex
	records []*AnalysisRecord
	err     error
}

func (s *fakeStore) Create(ctx context.Context, a *NewAnalysis) (*AnalysisRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &AnalysisRecord{
		ID:             int64(len(s.records) + 1),
		FileName:       a.FileName,
		FileSize:       a.FileSize,
		UploadedAt:     time.Now(),
		Headers:        a.Headers,
		Authentication: a.Authentication,
		Verdict:        a.Verdict,
		Links:          a.Links,
		Attachments:    a.Attachments,
		Body:           a.Body,
	}
	s.records = append(s.records, r)
	return r, nil
}

func (s *fakeStore) Get(ctx context.Context, id int64) (*AnalysisRecord, error) {
	return nil, ErrNotFound
}

func (s *fakeStore) ListRecent(ctx context.Context, limit int) ([]*AnalysisRecord, error) {
	return s.records, nil
}

func (s *fakeStore) Stats(ctx context.Context) (*AnalysisStats, error) {
	return &AnalysisStats{}, nil
}

func TestAnalyze(t *testing.T) {
	msg := phishingMessage()
	msg.DKIMSignature = "v=1; s=sel"
	parser := &fakeParser{msg: msg}
	auth := &fakeAuth{}
	store := &fakeStore{}
	scorer := NewRiskScorer(&stubProvider{err: errors.New("down")}, nil, time.Second, 1000, zap.NewNop())

	p := NewAnalysisPipeline(parser, auth, scorer, store, nil, zap.NewNop())

	record, err := p.Analyze(context.Background(), Upload{FileName: "phish.eml", Content: []byte("raw message")})
	require.NoError(t, err)

	assert.Equal(t, "raw message", parser.raw)
	assert.Equal(t, "billing@paypal-support.net", auth.from)
	assert.Equal(t, "v=1; s=sel", auth.dkim)

	assert.Equal(t, int64(1), record.ID)
	assert.Equal(t, "phish.eml", record.FileName)
	assert.Equal(t, int64(len("raw message")), record.FileSize)
	assert.Equal(t, AuthPass, record.Authentication.SPF)
	assert.Equal(t, RiskHigh, record.Verdict.RiskLevel)
	assert.Equal(t, msg.Body, record.Body)
	assert.Len(t, record.Links, 3)
}

// rendezvous lets two stages wait for each other; it only completes when
// both run at the same time
type rendezvous struct {
	authStarted, scoreStarted chan struct{}
}

func newRendezvous() *rendezvous {
	return &rendezvous{authStarted: make(chan struct{}), scoreStarted: make(chan struct{})}
}

func waitFor(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-time.After(2 * time.Second):
		return false
	}
}

type rendezvousAuth struct{ r *rendezvous }

func (a rendezvousAuth) Check(ctx context.Context, from string, dkim string) AuthenticationResult {
	close(a.r.authStarted)
	if !waitFor(a.r.scoreStarted) {
		return NoAuthentication
	}
	return AuthenticationResult{SPF: AuthPass, DKIM: AuthPass, DMARC: AuthPass}
}

type rendezvousProvider struct{ r *rendezvous }

func (p rendezvousProvider) RequestVerdict(ctx context.Context, req VerdictRequest) (string, string, error) {
	close(p.r.scoreStarted)
	if !waitFor(p.r.authStarted) {
		return "", "", errors.New("authentication never started")
	}
	return `{"riskLevel":"LOW","assessment":"Looks fine","confidence":90,"recommendations":[]}`, "test-model", nil
}

func TestAnalyzeRunsAuthenticationAndScoringConcurrently(t *testing.T) {
	r := newRendezvous()
	store := &fakeStore{}
	scorer := NewRiskScorer(rendezvousProvider{r}, nil, 5*time.Second, 1000, zap.NewNop())
	p := NewAnalysisPipeline(&fakeParser{msg: phishingMessage()}, rendezvousAuth{r}, scorer, store, nil, zap.NewNop())

	start := time.Now()
	record, err := p.Analyze(context.Background(), Upload{FileName: "x.eml", Content: []byte("x")})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	// the stored record carries both joined results
	require.Len(t, store.records, 1)
	stored := store.records[0]
	assert.Equal(t, AuthenticationResult{SPF: AuthPass, DKIM: AuthPass, DMARC: AuthPass}, stored.Authentication)
	assert.Equal(t, "test-model", stored.Verdict.ModelUsed)
	assert.Equal(t, RiskLow, stored.Verdict.RiskLevel)
	assert.Equal(t, stored, record)
}

func TestAnalyzeStoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("disk full")}
	scorer := NewRiskScorer(nil, nil, time.Second, 1000, nil)
	p := NewAnalysisPipeline(&fakeParser{msg: &ParsedMessage{}}, &fakeAuth{}, scorer, store, nil, nil)

	record, err := p.Analyze(context.Background(), Upload{FileName: "x.eml", Content: []byte("x")})

	assert.Nil(t, record)
	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, store.records)
}

func TestNewExport(t *testing.T) {
	uploaded := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := &AnalysisRecord{
		ID:         7,
		FileName:   "a.eml",
		FileSize:   120,
		UploadedAt: uploaded,
		Headers:    MessageHeaders{From: "a@example.com"},
		Verdict: RiskVerdict{
			RiskLevel:  RiskLow,
			Assessment: "fine",
			Confidence: 40,
		},
	}

	e := NewExport(r)

	assert.Equal(t, int64(7), e.Analysis.ID)
	assert.Equal(t, RiskLow, e.Analysis.RiskLevel)
	assert.Equal(t, 40, e.Analysis.Confidence)
	assert.Equal(t, uploaded, e.Analysis.UploadedAt)
	assert.Equal(t, "fine", e.Assessment.Description)
	assert.NotNil(t, e.Assessment.Recommendations)
	assert.NotNil(t, e.ExtractedData.Links)
	assert.NotNil(t, e.ExtractedData.Attachments)
	assert.Equal(t, "a@example.com", e.Email.From)
}

func TestStatsCount(t *testing.T) {
	now := time.Now()
	weekAgo := now.AddDate(0, 0, -7)
	var s AnalysisStats

	s.Count(RiskHigh, now, weekAgo)
	s.Count(RiskLow, now.AddDate(0, 0, -30), weekAgo)
	s.Count(RiskMedium, now.Add(-time.Hour), weekAgo)

	assert.Equal(t, AnalysisStats{TotalAnalyzed: 3, HighRisk: 1, MediumRisk: 1, LowRisk: 1, ThisWeek: 2}, s)
}
