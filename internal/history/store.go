// Package history persists key-recovery runs in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/RowanDark/xorgen/internal/logging"
	"github.com/RowanDark/xorgen/internal/recovery"
)

// ErrNotFound is returned when no run matches the requested ID.
var ErrNotFound = errors.New("history record not found")

// DefaultListLimit bounds List when no limit is given.
const DefaultListLimit = 50

// ColumnSummary is the persisted per-column outcome of a run.
type ColumnSummary struct {
	Index int    `json:"index"`
	Class string `json:"class"`
	Rows  int    `json:"rows"`
	Known bool   `json:"known"`
}

// Record is one saved recovery run.
type Record struct {
	ID               string          `json:"id"`
	CreatedAt        time.Time       `json:"created_at"`
	Source           string          `json:"source"`
	KeyLength        int             `json:"key_length"`
	CiphertextLength int             `json:"ciphertext_length"`
	Resolved         int             `json:"resolved"`
	Unresolved       int             `json:"unresolved"`
	Key              string          `json:"key"`
	Plaintext        string          `json:"plaintext"`
	Columns          []ColumnSummary `json:"columns"`
}

// NewRecord summarises a recovery result. The key is stored with unknown
// bytes rendered as the run's placeholder.
func NewRecord(res *recovery.Result, source string) Record {
	cols := make([]ColumnSummary, len(res.Columns))
	for i, c := range res.Columns {
		cols[i] = ColumnSummary{Index: c.Index, Class: c.Class.String(), Rows: c.Rows, Known: c.Key.Known}
	}
	return Record{
		Source:           source,
		KeyLength:        res.KeyLength,
		CiphertextLength: len(res.Plaintext),
		Resolved:         res.Resolved(),
		Unresolved:       res.Unresolved(),
		Key:              res.KeyString(),
		Plaintext:        res.Text(),
		Columns:          cols,
	}
}

// Store provides persistent storage for recovery runs.
type Store struct {
	db     *sql.DB
	logger *logging.AuditLogger
}

// Open opens (creating if needed) the history database at path.
func Open(path string, logger *logging.AuditLogger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := InitializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts rec, assigning its ID and creation time when unset, and
// returns the stored record.
func (s *Store) Save(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if strings.TrimSpace(rec.Source) == "" {
		rec.Source = "unknown"
	}
	if rec.Columns == nil {
		rec.Columns = []ColumnSummary{}
	}
	columns, err := json.Marshal(rec.Columns)
	if err != nil {
		return Record{}, fmt.Errorf("encode columns: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO runs (
            id, created_at, source, key_length, ciphertext_length,
            resolved, unresolved, recovered_key, plaintext, columns
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, rec.ID, rec.CreatedAt.Format(time.RFC3339Nano), rec.Source, rec.KeyLength,
		rec.CiphertextLength, rec.Resolved, rec.Unresolved, rec.Key, rec.Plaintext,
		string(columns))
	if err != nil {
		return Record{}, fmt.Errorf("insert run: %w", err)
	}

	if s.logger != nil {
		_ = s.logger.Emit(logging.AuditEvent{
			EventType: logging.EventHistoryWrite,
			Decision:  logging.DecisionInfo,
			Metadata: map[string]any{
				"id":         rec.ID,
				"source":     rec.Source,
				"key_length": rec.KeyLength,
				"resolved":   rec.Resolved,
			},
		})
	}
	return rec, nil
}

// Get retrieves a run by ID.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, created_at, source, key_length, ciphertext_length,
               resolved, unresolved, recovered_key, plaintext, columns
        FROM runs WHERE id = ?
    `, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// List returns up to limit runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, created_at, source, key_length, ciphertext_length,
               resolved, unresolved, recovered_key, plaintext, columns
        FROM runs ORDER BY id DESC LIMIT ?
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes a run by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var rec Record
	var createdAt, columns string
	err := sc.Scan(&rec.ID, &createdAt, &rec.Source, &rec.KeyLength, &rec.CiphertextLength,
		&rec.Resolved, &rec.Unresolved, &rec.Key, &rec.Plaintext, &columns)
	if err != nil {
		return Record{}, err
	}
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("parse created_at for %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(columns), &rec.Columns); err != nil {
		return Record{}, fmt.Errorf("decode columns for %s: %w", rec.ID, err)
	}
	return rec, nil
}
