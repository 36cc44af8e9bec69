package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mikey/mail-threat-analyzer/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "analyses.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, sampleAnalysis("invoice.eml", core.RiskHigh))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.FileName, got.FileName)
	assert.Equal(t, created.FileSize, got.FileSize)
	assert.True(t, created.UploadedAt.Equal(got.UploadedAt))
	assert.Equal(t, created.Headers, got.Headers)
	assert.Equal(t, created.Authentication, got.Authentication)
	assert.Equal(t, created.Verdict, got.Verdict)
	assert.Equal(t, created.Links, got.Links)
	assert.Equal(t, created.Attachments, got.Attachments)
	assert.Equal(t, created.Body, got.Body)

	_, err = s.Get(ctx, 42)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSQLiteStoreEmptyLists(t *testing.T) {
	s := newSQLiteStore(t)
	a := sampleAnalysis("plain.eml", core.RiskLow)
	a.Links, a.Attachments, a.Verdict.Recommendations = nil, nil, nil

	created, err := s.Create(context.Background(), a)
	require.NoError(t, err)

	got, err := s.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Links)
	assert.Empty(t, got.Attachments)
	assert.Empty(t, got.Verdict.Recommendations)
}

func TestSQLiteStoreConcurrentCreate(t *testing.T) {
	s := newSQLiteStore(t)
	const n = 25

	var wg sync.WaitGroup
	seen := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := s.Create(context.Background(), sampleAnalysis("c.eml", core.RiskLow))
			if assert.NoError(t, err) {
				seen <- r.ID
			}
		}()
	}
	wg.Wait()
	close(seen)

	ids := map[int64]bool{}
	for id := range seen {
		assert.False(t, ids[id], "duplicate id %d", id)
		ids[id] = true
	}
	for id := int64(1); id <= n; id++ {
		assert.True(t, ids[id], "missing id %d", id)
	}
}

func TestSQLiteStoreListAndStats(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	s.now = func() time.Time { return now.AddDate(0, 0, -8) }
	_, err := s.Create(ctx, sampleAnalysis("old.eml", core.RiskMedium))
	require.NoError(t, err)

	s.now = func() time.Time { return now }
	for _, level := range []core.RiskLevel{core.RiskHigh, core.RiskLow, core.RiskLow} {
		_, err := s.Create(ctx, sampleAnalysis("new.eml", level))
		require.NoError(t, err)
	}

	recent, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(4), recent[0].ID)
	assert.Equal(t, int64(3), recent[1].ID)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &core.AnalysisStats{TotalAnalyzed: 4, HighRisk: 1, MediumRisk: 1, LowRisk: 2, ThisWeek: 3}, stats)
}
