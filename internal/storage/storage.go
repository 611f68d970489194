// Package storage provides the SQLite-backed implementation of the ledger
// store: accounts, tokens, balances, and streams, with nestable savepoints.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage persists ledger state to a single SQLite file. SQLite only
// supports one writer, so the connection pool is pinned to size one: every
// statement — including SAVEPOINT/RELEASE/ROLLBACK TO — runs against the
// same physical connection, which is what makes nested savepoints behave
// correctly across a sequence of calls (§4.3, §5).
type Storage struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex

	spCounter int
}

// Config holds storage configuration.
type Config struct {
	DataDir string
}

// New opens (creating if necessary) the ledger database under cfg.DataDir.
func New(cfg *Config) (*Storage, error) {
	dataDir := expandPath(cfg.DataDir)

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "streamledger.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1) // single writer, and savepoints require one connection
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

// DB returns the underlying database connection, for host-level transaction
// management (commit/rollback around one externally initiated action).
func (s *Storage) DB() *sql.DB {
	return s.db
}

func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS account (
		address TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS token (
		address TEXT PRIMARY KEY,
		total_assets TEXT NOT NULL DEFAULT '0',
		total_shares TEXT NOT NULL DEFAULT '0',
		FOREIGN KEY (address) REFERENCES account(address)
	);

	CREATE TABLE IF NOT EXISTS balance (
		account_address TEXT NOT NULL,
		token_address TEXT NOT NULL,
		shares TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (account_address, token_address),
		FOREIGN KEY (account_address) REFERENCES account(address),
		FOREIGN KEY (token_address) REFERENCES token(address)
	);

	CREATE TABLE IF NOT EXISTS stream (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_address TEXT NOT NULL,
		to_address TEXT NOT NULL,
		start_ts INTEGER NOT NULL,
		duration INTEGER NOT NULL,
		amount TEXT NOT NULL,
		token_address TEXT NOT NULL,
		accrued INTEGER NOT NULL DEFAULT 0,
		swap_id TEXT,
		FOREIGN KEY (from_address) REFERENCES account(address),
		FOREIGN KEY (to_address) REFERENCES account(address),
		FOREIGN KEY (token_address) REFERENCES token(address)
	);

	CREATE INDEX IF NOT EXISTS idx_stream_from ON stream(from_address);
	CREATE INDEX IF NOT EXISTS idx_stream_to ON stream(to_address);
	CREATE INDEX IF NOT EXISTS idx_stream_token ON stream(token_address);
	CREATE INDEX IF NOT EXISTS idx_stream_accrued ON stream(accrued);
	`

	_, err := s.db.Exec(schema)
	return err
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
