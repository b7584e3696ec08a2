package history

import (
	"database/sql"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    source TEXT NOT NULL,
    key_length INTEGER NOT NULL,
    ciphertext_length INTEGER NOT NULL,
    resolved INTEGER NOT NULL,
    unresolved INTEGER NOT NULL,
    recovered_key TEXT NOT NULL,
    plaintext TEXT NOT NULL,
    columns TEXT NOT NULL -- JSON array
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// InitializeSchema creates the history tables if they do not exist.
func InitializeSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("initialize history schema: %w", err)
	}
	return nil
}
