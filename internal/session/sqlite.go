package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteStore persists sealed tokens in a SQLite database, so sessions
// survive portal restarts.
type SQLiteStore struct {
	db     *sql.DB
	sealer *Sealer
}

// NewSQLiteStore wraps an open database. InitSchema must have been run.
func NewSQLiteStore(db *sql.DB, sealer *Sealer) *SQLiteStore {
	return &SQLiteStore{db: db, sealer: sealer}
}

// OpenSQLite opens (or creates) the database at path and prepares the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string, sealer *Sealer) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serialises writers anyway; one connection also keeps a
	// ":memory:" database from splitting across the pool.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := InitSchema(ctx, db); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}

	return NewSQLiteStore(db, sealer), nil
}

// InitSchema creates the token table. Safe to call more than once.
func InitSchema(ctx context.Context, db *sql.DB) error {
	ddlStatements := []string{
		// session_tokens: one row per (browser, kind); token_sealed holds
		// hex(nonce+ciphertext) produced by Sealer.
		`CREATE TABLE IF NOT EXISTS session_tokens (
			browser_id TEXT NOT NULL,
			storage_key TEXT NOT NULL,
			token_sealed TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (browser_id, storage_key)
		)`,
	}

	for _, stmt := range ddlStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute DDL: %w", err)
		}
	}
	return nil
}

// Get returns the token stored for the browser and kind.
func (s *SQLiteStore) Get(ctx context.Context, browserID string, kind Kind) (string, error) {
	if err := checkKey(browserID, kind); err != nil {
		return "", err
	}

	var sealed string
	err := s.db.QueryRowContext(ctx,
		"SELECT token_sealed FROM session_tokens WHERE browser_id = ? AND storage_key = ?",
		browserID, kind.StorageKey()).
		Scan(&sealed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("failed to get token: %w", err)
	}

	return s.sealer.Open(browserID, kind, sealed)
}

// Set stores the token, replacing the previous one of the same kind.
func (s *SQLiteStore) Set(ctx context.Context, browserID string, kind Kind, token string) error {
	if err := checkEntry(browserID, kind, token); err != nil {
		return err
	}

	sealed, err := s.sealer.Seal(browserID, kind, token)
	if err != nil {
		return fmt.Errorf("failed to seal token: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_tokens (browser_id, storage_key, token_sealed) VALUES (?, ?, ?)
		ON CONFLICT (browser_id, storage_key)
		DO UPDATE SET token_sealed = excluded.token_sealed, updated_at = CURRENT_TIMESTAMP`,
		browserID, kind.StorageKey(), sealed)
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Clear removes the token of kind for the browser.
func (s *SQLiteStore) Clear(ctx context.Context, browserID string, kind Kind) error {
	if err := checkKey(browserID, kind); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM session_tokens WHERE browser_id = ? AND storage_key = ?",
		browserID, kind.StorageKey())
	if err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
