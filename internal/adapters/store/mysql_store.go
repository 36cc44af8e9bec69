package store

import (
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

const mysqlSchema = `
	CREATE TABLE IF NOT EXISTS analyses (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		file_name VARCHAR(255) NOT NULL,
		file_size BIGINT NOT NULL,
		uploaded_at DATETIME(6) NOT NULL,
		sender VARCHAR(512) NOT NULL DEFAULT '',
		recipient TEXT NOT NULL,
		subject TEXT NOT NULL,
		sent_date VARCHAR(128) NOT NULL DEFAULT '',
		spf VARCHAR(16) NOT NULL,
		dkim VARCHAR(16) NOT NULL,
		dmarc VARCHAR(16) NOT NULL,
		risk_level VARCHAR(16) NOT NULL,
		confidence INT NOT NULL,
		assessment TEXT NOT NULL,
		recommendations JSON NOT NULL,
		model_used VARCHAR(255) NOT NULL DEFAULT '',
		links JSON NOT NULL,
		attachments JSON NOT NULL,
		body LONGTEXT NOT NULL,
		INDEX idx_uploaded_at (uploaded_at)
	)
`

// mysqlDSN forces parseTime so DATETIME columns scan into time.Time
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// NewMySQLStore connects to MySQL and ensures the analyses table exists
func NewMySQLStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	dsn, err := mysqlDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	return NewMySQLStoreWithDB(db, logger)
}

// NewMySQLStoreWithDB uses an already opened MySQL handle
func NewMySQLStoreWithDB(db *sql.DB, logger *zap.Logger) (*SQLStore, error) {
	if _, err := db.Exec(mysqlSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return newSQLStore(db, "mysql", logger), nil
}
