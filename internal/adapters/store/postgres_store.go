package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mikey/mail-threat-analyzer/internal/core"
	"go.uber.org/zap"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS analyses (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		file_name TEXT NOT NULL,
		file_size BIGINT NOT NULL,
		uploaded_at TIMESTAMPTZ NOT NULL,
		sender TEXT NOT NULL DEFAULT '',
		recipient TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		sent_date TEXT NOT NULL DEFAULT '',
		spf TEXT NOT NULL,
		dkim TEXT NOT NULL,
		dmarc TEXT NOT NULL,
		risk_level TEXT NOT NULL,
		confidence INTEGER NOT NULL,
		assessment TEXT NOT NULL,
		recommendations TEXT NOT NULL,
		model_used TEXT NOT NULL DEFAULT '',
		links TEXT NOT NULL,
		attachments TEXT NOT NULL,
		body TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analyses_uploaded_at ON analyses (uploaded_at);
`

// PostgresStore is a PostgreSQL implementation of the AnalysisStore interface
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

// NewPostgresStore connects a pool and ensures the analyses table exists
func NewPostgresStore(ctx context.Context, connStr string, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &PostgresStore{pool: pool, logger: logger, now: time.Now}, nil
}

// Create inserts a new analysis and returns it with its assigned id
func (s *PostgresStore) Create(ctx context.Context, analysis *core.NewAnalysis) (*core.AnalysisRecord, error) {
	cols, err := encodeColumns(analysis)
	if err != nil {
		return nil, err
	}

	uploadedAt := s.now().UTC().Truncate(time.Microsecond)
	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO analyses (file_name, file_size, uploaded_at, sender, recipient, subject, sent_date,
			spf, dkim, dmarc, risk_level, confidence, assessment, recommendations, model_used,
			links, attachments, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`,
		analysis.FileName, analysis.FileSize, uploadedAt,
		analysis.Headers.From, analysis.Headers.To, analysis.Headers.Subject, analysis.Headers.Date,
		string(analysis.Authentication.SPF), string(analysis.Authentication.DKIM), string(analysis.Authentication.DMARC),
		string(analysis.Verdict.RiskLevel), analysis.Verdict.Confidence, analysis.Verdict.Assessment,
		cols.recommendations, analysis.Verdict.ModelUsed,
		cols.links, cols.attachments, analysis.Body,
	).Scan(&id)
	observe("create", err)
	if err != nil {
		return nil, fmt.Errorf("failed to insert analysis into postgres: %w", err)
	}

	s.logger.Debug("Stored analysis", zap.String("store", "postgres"), zap.Int64("id", id))
	return newRecord(id, uploadedAt, analysis), nil
}

// Get retrieves an analysis by id
func (s *PostgresStore) Get(ctx context.Context, id int64) (*core.AnalysisRecord, error) {
	record, err := scanRecord(s.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM analyses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*core.AnalysisRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.pool.Query(ctx, `SELECT `+recordColumns+` FROM analyses ORDER BY id DESC LIMIT $1`, limit)
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

// Stats aggregates every stored analysis in one query
func (s *PostgresStore) Stats(ctx context.Context) (*core.AnalysisStats, error) {
	var stats core.AnalysisStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE risk_level = 'HIGH'),
			COUNT(*) FILTER (WHERE risk_level = 'MEDIUM'),
			COUNT(*) FILTER (WHERE risk_level = 'LOW'),
			COUNT(*) FILTER (WHERE uploaded_at > $1)
		FROM analyses
	`, s.now().AddDate(0, 0, -7)).Scan(
		&stats.TotalAnalyzed, &stats.HighRisk, &stats.MediumRisk, &stats.LowRisk, &stats.ThisWeek,
	)
	observe("stats", err)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	return &stats, nil
}

// Stop closes the connection pool
func (s *PostgresStore) Stop() {
	s.pool.Close()
}
