package store

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/mail-threat-analyzer/internal/core"
	"go.uber.org/zap"
)

// DefaultRecentLimit is used when ListRecent is called without a positive limit
const DefaultRecentLimit = 10

// MemoryStore is an in-memory implementation of the AnalysisStore interface
type MemoryStore struct {
	records []*core.AnalysisRecord
	nextID  int64
	mu      sync.RWMutex
	logger  *zap.Logger
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		nextID: 1,
		logger: logger,
		now:    time.Now,
	}
}

// Create stores a new analysis under the next id
func (s *MemoryStore) Create(ctx context.Context, analysis *core.NewAnalysis) (*core.AnalysisRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := newRecord(s.nextID, s.now().UTC(), analysis)
	s.nextID++
	s.records = append(s.records, record)

	s.logger.Debug("Stored analysis", zap.Int64("id", record.ID))
	observe("create", nil)

	clone := *record
	return &clone, nil
}

// Get retrieves an analysis by id
func (s *MemoryStore) Get(ctx context.Context, id int64) (*core.AnalysisRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// ids are dense and start at 1, so the record sits at id-1
	if id < 1 || id > int64(len(s.records)) {
		observe("get", core.ErrNotFound)
		return nil, core.ErrNotFound
	}
	observe("get", nil)
	clone := *s.records[id-1]
	return &clone, nil
}

// ListRecent returns up to limit analyses, newest first
func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*core.AnalysisRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.AnalysisRecord, 0, min(limit, len(s.records)))
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		clone := *s.records[i]
		out = append(out, &clone)
	}
	observe("list", nil)
	return out, nil
}

// Stats aggregates every stored analysis
func (s *MemoryStore) Stats(ctx context.Context) (*core.AnalysisStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	weekAgo := s.now().AddDate(0, 0, -7)
	stats := &core.AnalysisStats{}
	for _, r := range s.records {
		stats.Count(r.Verdict.RiskLevel, r.UploadedAt, weekAgo)
	}
	observe("stats", nil)
	return stats, nil
}

// Stop releases the store; nothing to do in memory
func (s *MemoryStore) Stop() {}

func newRecord(id int64, uploadedAt time.Time, a *core.NewAnalysis) *core.AnalysisRecord {
	return &core.AnalysisRecord{
		ID:             id,
		FileName:       a.FileName,
		FileSize:       a.FileSize,
		UploadedAt:     uploadedAt,
		Headers:        a.Headers,
		Authentication: a.Authentication,
		Verdict:        a.Verdict,
		Links:          a.Links,
		Attachments:    a.Attachments,
		Body:           a.Body,
	}
}
