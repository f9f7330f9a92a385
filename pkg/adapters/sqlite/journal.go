// Package sqlite contains the SQLite implementation of the transaction journal.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/aretw0/adtkit/pkg/ports"

	_ "github.com/mattn/go-sqlite3"
)

// Journal implements ports.Journal with SQLite.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at path and applies the schema.
// Use ":memory:" for an ephemeral journal.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// One connection: an in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	j, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// New wraps an open database, applying the schema.
func New(db *sql.DB) (*Journal, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record persists one entry. Recording the same ID twice keeps the latest entry.
func (j *Journal) Record(ctx context.Context, entry ports.JournalEntry) error {
	var trace sql.NullString
	if len(entry.Trace) > 0 {
		data, err := json.Marshal(entry.Trace)
		if err != nil {
			return fmt.Errorf("failed to marshal trace: %w", err)
		}
		trace = sql.NullString{String: string(data), Valid: true}
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO journal
			(id, session_id, operation, kind, name, package, parent, success, error_kind, message, trace, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SessionID, entry.Operation,
		string(entry.Ref.Kind), entry.Ref.Name, entry.Ref.Package, entry.Ref.Parent,
		entry.Success, string(entry.ErrorKind), entry.Message, trace, entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries first. A non-positive limit returns all entries.
func (j *Journal) Recent(ctx context.Context, limit int) ([]ports.JournalEntry, error) {
	query := `SELECT id, session_id, operation, kind, name, package, parent, success, error_kind, message, trace, created_at
		FROM journal ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}
	defer rows.Close()

	var entries []ports.JournalEntry
	for rows.Next() {
		var (
			entry                    ports.JournalEntry
			sessionID, pkg, parent   sql.NullString
			kind, errorKind, traceJS sql.NullString
			createdAt                time.Time
		)
		if err := rows.Scan(&entry.ID, &sessionID, &entry.Operation, &kind, &entry.Ref.Name, &pkg, &parent,
			&entry.Success, &errorKind, &entry.Message, &traceJS, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entry.SessionID = sessionID.String
		entry.Ref.Kind = domain.ObjectKind(kind.String)
		entry.Ref.Package = pkg.String
		entry.Ref.Parent = parent.String
		entry.ErrorKind = domain.ErrorKind(errorKind.String)
		entry.CreatedAt = createdAt
		if traceJS.Valid && traceJS.String != "" {
			if err := json.Unmarshal([]byte(traceJS.String), &entry.Trace); err != nil {
				return nil, fmt.Errorf("failed to decode trace of %s: %w", entry.ID, err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal: %w", err)
	}
	return entries, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
