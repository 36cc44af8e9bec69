package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/mail-threat-analyzer/internal/core"
	"go.uber.org/zap"
)

// SQLStore is a database/sql implementation of the AnalysisStore interface,
// shared by the SQLite and MySQL backends. Id assignment is left to the
// database's auto-increment column.
type SQLStore struct {
	db     *sql.DB
	logger *zap.Logger
	name   string
	now    func() time.Time
}

func newSQLStore(db *sql.DB, name string, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{
		db:     db,
		logger: logger,
		name:   name,
		now:    time.Now,
	}
}

// Create inserts a new analysis and returns it with its assigned id
func (s *SQLStore) Create(ctx context.Context, analysis *core.NewAnalysis) (*core.AnalysisRecord, error) {
	cols, err := encodeColumns(analysis)
	if err != nil {
		return nil, err
	}

	uploadedAt := s.now().UTC().Truncate(time.Microsecond)
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (file_name, file_size, uploaded_at, sender, recipient, subject, sent_date,
			spf, dkim, dmarc, risk_level, confidence, assessment, recommendations, model_used,
			links, attachments, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		analysis.FileName, analysis.FileSize, uploadedAt,
		analysis.Headers.From, analysis.Headers.To, analysis.Headers.Subject, analysis.Headers.Date,
		string(analysis.Authentication.SPF), string(analysis.Authentication.DKIM), string(analysis.Authentication.DMARC),
		string(analysis.Verdict.RiskLevel), analysis.Verdict.Confidence, analysis.Verdict.Assessment,
		cols.recommendations, analysis.Verdict.ModelUsed,
		cols.links, cols.attachments, analysis.Body,
	)
	if err != nil {
		observe("create", err)
		return nil, fmt.Errorf("failed to insert analysis into %s: %w", s.name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		observe("create", err)
		return nil, fmt.Errorf("failed to read assigned id: %w", err)
	}
	observe("create", nil)

	s.logger.Debug("Stored analysis", zap.String("store", s.name), zap.Int64("id", id))
	return newRecord(id, uploadedAt, analysis), nil
}

// Get retrieves an analysis by id
func (s *SQLStore) Get(ctx context.Context, id int64) (*core.AnalysisRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM analyses WHERE id = ?`, id)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			observe("get", core.ErrNotFound)
			return nil, core.ErrNotFound
		}
		observe("get", err)
		return nil, fmt.Errorf("failed to query analysis: %w", err)
	}
	observe("get", nil)
	return record, nil
}

// ListRecent returns up to limit analyses, newest first
func (s *SQLStore) ListRecent(ctx context.Context, limit int) ([]*core.AnalysisRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM analyses ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		observe("list", err)
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	records := make([]*core.AnalysisRecord, 0, limit)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			observe("list", err)
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		observe("list", err)
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	observe("list", nil)
	return records, nil
}

// Stats aggregates every stored analysis
func (s *SQLStore) Stats(ctx context.Context) (*core.AnalysisStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT risk_level, uploaded_at FROM analyses`)
	if err != nil {
		observe("stats", err)
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	weekAgo := s.now().AddDate(0, 0, -7)
	stats := &core.AnalysisStats{}
	for rows.Next() {
		var (
			level      string
			uploadedAt time.Time
		)
		if err := rows.Scan(&level, &uploadedAt); err != nil {
			observe("stats", err)
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.Count(core.RiskLevel(level), uploadedAt, weekAgo)
	}
	if err := rows.Err(); err != nil {
		observe("stats", err)
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	observe("stats", nil)
	return stats, nil
}

// Stop closes the database connection
func (s *SQLStore) Stop() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database", zap.String("store", s.name), zap.Error(err))
	}
}
