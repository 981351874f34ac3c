// Package storage archives finished reconciliation runs in SQLite. Each run
// is written once after it completes; nothing here feeds back into matching,
// so a reconciliation always starts from its inputs alone.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides the run archive.
type Storage struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Config holds storage configuration.
type Config struct {
	DataDir string
}

// New opens (or creates) the archive database.
func New(cfg *Config) (*Storage, error) {
	dataDir := expandPath(cfg.DataDir)

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "reconengine.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Storage{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) initSchema() error {
	schema := `
	-- Finished reconciliation runs
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		groups INTEGER NOT NULL,
		total_matches INTEGER NOT NULL,
		trader_count INTEGER NOT NULL,
		exchange_count INTEGER NOT NULL,
		matched_trader INTEGER NOT NULL,
		matched_exchange INTEGER NOT NULL,
		overall_rate REAL NOT NULL
	);

	-- Match audit rows per run
	CREATE TABLE IF NOT EXISTS run_matches (
		run_id TEXT NOT NULL,
		match_id TEXT NOT NULL,
		group_id INTEGER NOT NULL,
		rule_number INTEGER NOT NULL,
		confidence TEXT NOT NULL,
		trader_ids TEXT NOT NULL,
		exchange_ids TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (run_id, match_id)
	);

	-- Unmatched residuals per run
	CREATE TABLE IF NOT EXISTS run_unmatched (
		run_id TEXT NOT NULL,
		group_id INTEGER NOT NULL,
		source TEXT NOT NULL,
		trade_id TEXT NOT NULL,
		product TEXT NOT NULL,
		contract_month TEXT NOT NULL,
		quantity TEXT NOT NULL,
		unit TEXT NOT NULL,
		price TEXT NOT NULL,
		side TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_run_matches_run ON run_matches(run_id);
	CREATE INDEX IF NOT EXISTS idx_run_unmatched_run ON run_unmatched(run_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
