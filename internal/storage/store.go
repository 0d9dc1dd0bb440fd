// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"modernc.org/sqlite" // Pure Go SQLite driver
)

// timeLayout is fixed width so text comparison orders like time.
const timeLayout = "2006-01-02 15:04:05.000000000"

// =============================================================================
// STORE
// =============================================================================

// ConversationStore is the durable store for conversations, tags and settings.
// It is safe for concurrent use.
type ConversationStore struct {
	db     *sql.DB
	path   string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a ConversationStore.
type Option func(*ConversationStore)

// WithClock overrides the time source used for created/updated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *ConversationStore) { s.now = now }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *ConversationStore) { s.logger = l }
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string, opts ...Option) (*ConversationStore, error) {
	if err := registerFunctions(); err != nil {
		return nil, fmt.Errorf("failed to register sql functions: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Pragmas are per connection; the DSN reapplies them to every new one.
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer; no connection outlives the operation that opened it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)

	s := &ConversationStore{
		db:     db,
		path:   path,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "storage")

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.logger.Debug("store opened", "path", path)
	return s, nil
}

// Path returns the database file path.
func (s *ConversationStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *ConversationStore) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, committing only if fn succeeds.
func (s *ConversationStore) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(op, err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return wrap(op, err)
	}
	if err := tx.Commit(); err != nil {
		return wrap(op, err)
	}
	return nil
}

func (s *ConversationStore) stamp() string {
	return formatTime(s.now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.ParseInLocation(timeLayout, v, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// =============================================================================
// SQL FUNCTIONS
// =============================================================================

var (
	registerOnce sync.Once
	registerErr  error
)

// registerFunctions installs casefold(text), a Unicode-aware fold used for
// case-insensitive substring search. SQLite's own LIKE folds ASCII only.
func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = sqlite.RegisterDeterministicScalarFunction("casefold", 1,
			func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
				switch v := args[0].(type) {
				case nil:
					return nil, nil
				case string:
					return cases.Fold().String(v), nil
				case []byte:
					return cases.Fold().String(string(v)), nil
				default:
					return cases.Fold().String(fmt.Sprint(v)), nil
				}
			})
	})
	return registerErr
}
