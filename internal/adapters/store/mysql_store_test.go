package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mikey/mail-threat-analyzer/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var columnNames = []string{
	"id", "file_name", "file_size", "uploaded_at", "sender", "recipient", "subject", "sent_date",
	"spf", "dkim", "dmarc", "risk_level", "confidence", "assessment", "recommendations", "model_used",
	"links", "attachments", "body",
}

func newMockMySQLStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS analyses").WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := NewMySQLStoreWithDB(db, zap.NewNop())
	require.NoError(t, err)
	return s, mock
}

func TestMySQLStoreCreate(t *testing.T) {
	s, mock := newMockMySQLStore(t)
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	a := sampleAnalysis("phish.eml", core.RiskHigh)
	mock.ExpectExec("INSERT INTO analyses").
		WithArgs(
			"phish.eml", int64(1024), now,
			"a@example.com", "", "hello", "",
			"PASS", "NONE", "NEUTRAL",
			"HIGH", 60, "assessment of phish.eml",
			`["Continue monitoring"]`, "heuristic",
			`[{"url":"http://bit.ly/x","text":"http://bit.ly/x","suspicious":true}]`,
			`[{"name":"a.pdf","size":10,"sizeVerified":true,"hash":"abc","type":"application/pdf"}]`,
			"body of phish.eml",
		).
		WillReturnResult(sqlmock.NewResult(17, 1))

	r, err := s.Create(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, int64(17), r.ID)
	assert.Equal(t, now, r.UploadedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStoreCreateError(t *testing.T) {
	s, mock := newMockMySQLStore(t)
	mock.ExpectExec("INSERT INTO analyses").WillReturnError(errors.New("connection refused"))

	_, err := s.Create(context.Background(), sampleAnalysis("x.eml", core.RiskLow))
	assert.ErrorContains(t, err, "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStoreGet(t *testing.T) {
	s, mock := newMockMySQLStore(t)
	uploaded := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM analyses WHERE id = \?`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(columnNames).AddRow(
			int64(5), "a.eml", int64(300), uploaded, "a@example.com", "b@example.com", "hi", "today",
			"PASS", "FAIL", "NONE", "MEDIUM", int64(55), "looks odd", `["Verify sender domain authenticity"]`, "gpt-4o",
			`[{"url":"https://example.com","text":"site","suspicious":false}]`, `[]`, "body",
		))

	r, err := s.Get(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, int64(5), r.ID)
	assert.Equal(t, uploaded, r.UploadedAt)
	assert.Equal(t, core.MessageHeaders{From: "a@example.com", To: "b@example.com", Subject: "hi", Date: "today"}, r.Headers)
	assert.Equal(t, core.AuthFail, r.Authentication.DKIM)
	assert.Equal(t, core.RiskMedium, r.Verdict.RiskLevel)
	assert.Equal(t, 55, r.Verdict.Confidence)
	assert.Equal(t, []string{"Verify sender domain authenticity"}, r.Verdict.Recommendations)
	assert.Equal(t, []core.Link{{URL: "https://example.com", DisplayText: "site"}}, r.Links)
	assert.Empty(t, r.Attachments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStoreGetNotFound(t *testing.T) {
	s, mock := newMockMySQLStore(t)
	mock.ExpectQuery(`SELECT (.+) FROM analyses WHERE id = \?`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(columnNames))

	_, err := s.Get(context.Background(), 9)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMySQLStoreListRecentDefaultLimit(t *testing.T) {
	s, mock := newMockMySQLStore(t)
	mock.ExpectQuery(`SELECT (.+) FROM analyses ORDER BY id DESC LIMIT \?`).
		WithArgs(DefaultRecentLimit).
		WillReturnRows(sqlmock.NewRows(columnNames))

	records, err := s.ListRecent(context.Background(), -1)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStoreStats(t *testing.T) {
	s, mock := newMockMySQLStore(t)
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	mock.ExpectQuery("SELECT risk_level, uploaded_at FROM analyses").
		WillReturnRows(sqlmock.NewRows([]string{"risk_level", "uploaded_at"}).
			AddRow("HIGH", now.Add(-time.Hour)).
			AddRow("LOW", now.AddDate(0, 0, -20)).
			AddRow("LOW", now.AddDate(0, 0, -2)))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &core.AnalysisStats{TotalAnalyzed: 3, HighRisk: 1, LowRisk: 2, ThisWeek: 2}, stats)
}

func TestMySQLDSNForcesParseTime(t *testing.T) {
	dsn, err := mysqlDSN("analyzer:secret@tcp(db:3306)/threat_analyzer")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "tcp(db:3306)/threat_analyzer")

	dsn, err = mysqlDSN("analyzer:secret@tcp(db:3306)/threat_analyzer?parseTime=false&timeout=5s")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "timeout=5s")

	_, err = mysqlDSN("analyzer:secret@tcp(db:3306)")
	assert.Error(t, err)
}
