package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// NewSQLiteStore opens (and if needed creates) a SQLite analysis store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// SQLite serializes writers; one connection keeps inserts from racing on the lock
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS analyses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_name TEXT NOT NULL,
			file_size INTEGER NOT NULL,
			uploaded_at TIMESTAMP NOT NULL,
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
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_uploaded_at ON analyses(uploaded_at)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return newSQLStore(db, "sqlite", logger), nil
}
