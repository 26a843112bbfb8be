package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/aqua777/go-legalrag/schema"
)

const createTableStmt = `
CREATE TABLE IF NOT EXISTS documents (
	document_id   TEXT PRIMARY KEY,
	case_category TEXT NOT NULL,
	storage_url   TEXT NOT NULL,
	summary       TEXT NOT NULL,
	created_at    INTEGER NOT NULL DEFAULT (unixepoch()),
	insert_seq    INTEGER
);
CREATE INDEX IF NOT EXISTS idx_documents_category ON documents (case_category);
`

// SQLiteStore persists document records in a SQLite database. The driver is
// pure Go, so the store needs no cgo toolchain.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the database at path. Use
// ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, schema.NewTransientError("metadata.open",
			fmt.Errorf("failed to open sqlite database: %w", err))
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// under concurrent ingestion.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTableStmt); err != nil {
		db.Close()
		return nil, schema.NewTransientError("metadata.open",
			fmt.Errorf("failed to create documents table: %w", err))
	}
	return &SQLiteStore{db: db}, nil
}

// Put inserts or replaces a record. Replacement keeps the original insertion
// position so listings stay stable across re-ingestion.
func (s *SQLiteStore) Put(ctx context.Context, record schema.DocumentRecord) error {
	if record.DocumentID == "" {
		return schema.NewInputError("metadata.put", fmt.Errorf("empty document id"))
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (document_id, case_category, storage_url, summary, insert_seq)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(insert_seq), 0) + 1 FROM documents))
		ON CONFLICT (document_id) DO UPDATE SET
			case_category = excluded.case_category,
			storage_url   = excluded.storage_url,
			summary       = excluded.summary`,
		record.DocumentID, record.CaseCategory, record.StorageURL, record.Summary)
	if err != nil {
		return schema.NewTransientError("metadata.put",
			fmt.Errorf("failed to upsert record for %s: %w", record.DocumentID, err))
	}
	return nil
}

// Get returns the record for a document ID.
func (s *SQLiteStore) Get(ctx context.Context, documentID string) (schema.DocumentRecord, error) {
	var record schema.DocumentRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT document_id, case_category, storage_url, summary
		FROM documents WHERE document_id = ?`, documentID).
		Scan(&record.DocumentID, &record.CaseCategory, &record.StorageURL, &record.Summary)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.DocumentRecord{}, schema.NewInputError("metadata.get",
			fmt.Errorf("%w: %s", ErrNotFound, documentID))
	}
	if err != nil {
		return schema.DocumentRecord{}, schema.NewTransientError("metadata.get",
			fmt.Errorf("failed to read record for %s: %w", documentID, err))
	}
	return record, nil
}

// List returns all records in insertion order.
func (s *SQLiteStore) List(ctx context.Context) ([]schema.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, case_category, storage_url, summary
		FROM documents ORDER BY insert_seq`)
	if err != nil {
		return nil, schema.NewTransientError("metadata.list",
			fmt.Errorf("failed to list records: %w", err))
	}
	defer rows.Close()

	var records []schema.DocumentRecord
	for rows.Next() {
		var record schema.DocumentRecord
		if err := rows.Scan(&record.DocumentID, &record.CaseCategory, &record.StorageURL, &record.Summary); err != nil {
			return nil, schema.NewTransientError("metadata.list",
				fmt.Errorf("failed to scan record: %w", err))
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, schema.NewTransientError("metadata.list",
			fmt.Errorf("failed to iterate records: %w", err))
	}
	return records, nil
}

// Delete removes a record.
func (s *SQLiteStore) Delete(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE document_id = ?`, documentID); err != nil {
		return schema.NewTransientError("metadata.delete",
			fmt.Errorf("failed to delete record for %s: %w", documentID, err))
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
