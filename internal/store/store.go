package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a tool id or slug matches no row
var ErrNotFound = errors.New("not found")

// Store persists tools, source pages and claims in SQLite
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates or opens the database at path and applies the schema
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; batch workers queue here instead of on SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tools (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		website_url TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		pricing_model TEXT NOT NULL DEFAULT 'UNKNOWN',
		confidence_tier TEXT NOT NULL DEFAULT 'SEEDED',
		starting_price_minor INTEGER,
		billing_period TEXT NOT NULL DEFAULT 'UNKNOWN',
		has_free_trial INTEGER,
		trial_days INTEGER,
		has_free_plan INTEGER,
		integrations_json TEXT,
		flags_json TEXT,
		rating REAL,
		rating_meta_json TEXT,
		rated_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tools_category ON tools(category);

	CREATE TABLE IF NOT EXISTS source_pages (
		tool_id TEXT NOT NULL REFERENCES tools(id) ON DELETE CASCADE,
		category TEXT NOT NULL,
		url TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		meta_json TEXT NOT NULL,
		PRIMARY KEY (tool_id, category)
	);

	CREATE TABLE IF NOT EXISTS external_claims (
		id TEXT PRIMARY KEY,
		tool_id TEXT NOT NULL REFERENCES tools(id) ON DELETE CASCADE,
		source_type TEXT NOT NULL,
		source_url TEXT NOT NULL,
		topic TEXT NOT NULL,
		sentiment INTEGER NOT NULL,
		claim TEXT NOT NULL,
		strength REAL NOT NULL,
		evidence_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_claims_tool ON external_claims(tool_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
