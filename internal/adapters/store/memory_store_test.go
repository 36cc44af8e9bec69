package store

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/mikey/mail-threat-analyzer/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleAnalysis(name string, level core.RiskLevel) *core.NewAnalysis {
	return &core.NewAnalysis{
		FileName: name,
		FileSize: 1024,
		Headers:  core.MessageHeaders{From: "a@example.com", Subject: "hello"},
		Authentication: core.AuthenticationResult{
			SPF: core.AuthPass, DKIM: core.AuthNone, DMARC: core.AuthNeutral,
		},
		Verdict: core.RiskVerdict{
			RiskLevel:       level,
			Assessment:      "assessment of " + name,
			Confidence:      60,
			Recommendations: []string{"Continue monitoring"},
			ModelUsed:       "heuristic",
		},
		Links:       []core.Link{{URL: "http://bit.ly/x", DisplayText: "http://bit.ly/x", Suspicious: true}},
		Attachments: []core.Attachment{{Name: "a.pdf", SizeBytes: 10, SizeVerified: true, Hash: "abc", MimeType: "application/pdf"}},
		Body:        "body of " + name,
	}
}

func TestMemoryStoreConcurrentCreate(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	const n = 200

	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := s.Create(context.Background(), sampleAnalysis("m.eml", core.RiskLow))
			if assert.NoError(t, err) {
				ids[i] = r.ID
			}
		}(i)
	}
	wg.Wait()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		assert.Equal(t, int64(i+1), id)
	}

	recent, err := s.ListRecent(context.Background(), n)
	require.NoError(t, err)
	require.Len(t, recent, n)
	for i := 1; i < len(recent); i++ {
		assert.Greater(t, recent[i-1].ID, recent[i].ID)
	}
}

func TestMemoryStoreGetAndList(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := s.Create(ctx, sampleAnalysis("m.eml", core.RiskLow))
		require.NoError(t, err)
	}

	r, err := s.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.ID)
	assert.Equal(t, "body of m.eml", r.Body)

	_, err = s.Get(ctx, 99)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.Get(ctx, 0)
	assert.ErrorIs(t, err, core.ErrNotFound)

	recent, err := s.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, DefaultRecentLimit)
	assert.Equal(t, int64(12), recent[0].ID)

	recent, err = s.ListRecent(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{12, 11, 10}, []int64{recent[0].ID, recent[1].ID, recent[2].ID})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore(nil)
	r, err := s.Create(context.Background(), sampleAnalysis("m.eml", core.RiskLow))
	require.NoError(t, err)

	r.FileName = "changed"
	again, err := s.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, "m.eml", again.FileName)
}

func TestMemoryStoreStats(t *testing.T) {
	s := NewMemoryStore(nil)
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	s.now = func() time.Time { return now.AddDate(0, 0, -10) }
	_, _ = s.Create(ctx, sampleAnalysis("old.eml", core.RiskHigh))

	s.now = func() time.Time { return now.Add(-time.Hour) }
	_, _ = s.Create(ctx, sampleAnalysis("a.eml", core.RiskHigh))
	_, _ = s.Create(ctx, sampleAnalysis("b.eml", core.RiskMedium))
	_, _ = s.Create(ctx, sampleAnalysis("c.eml", core.RiskLow))

	s.now = func() time.Time { return now }
	stats, err := s.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, &core.AnalysisStats{
		TotalAnalyzed: 4,
		HighRisk:      2,
		MediumRisk:    1,
		LowRisk:       1,
		ThisWeek:      3,
	}, stats)
}
