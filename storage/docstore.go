package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/shapestore/shapestore/schema"
	_ "github.com/mattn/go-sqlite3"
)

const docstoreSchema = `
CREATE TABLE IF NOT EXISTS collections (
	name TEXT PRIMARY KEY,
	field_structure TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteDocument is the document backend: one table per collection,
// records stored as JSON text. Collection creation is INSERT OR IGNORE
// plus IF NOT EXISTS DDL, so concurrent appliers both succeed.
type SQLiteDocument struct {
	db *sql.DB

	mu          sync.RWMutex
	collections map[string]*schema.Document
}

func NewSQLiteDocument(path string) (*SQLiteDocument, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open document database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(docstoreSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: init document store: %w", err)
	}
	return &SQLiteDocument{db: db, collections: make(map[string]*schema.Document)}, nil
}

func (b *SQLiteDocument) Close() error { return b.db.Close() }

func (b *SQLiteDocument) Apply(ctx context.Context, s *schema.Document) (Location, error) {
	fs, err := json.Marshal(s.FieldStructure)
	if err != nil {
		return Location{}, &BackendApplyError{Backend: "docstore", Name: s.CollectionName, Attempts: 1, Cause: err}
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS doc_%s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		body TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, s.CollectionName)
	if _, err := b.db.ExecContext(ctx, ddl); err != nil {
		return Location{}, &BackendApplyError{Backend: "docstore", Name: s.CollectionName, Attempts: 1, Cause: err}
	}

	_, err = b.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections (name, field_structure) VALUES (?, ?)`,
		s.CollectionName, string(fs))
	if err != nil {
		return Location{}, &BackendApplyError{Backend: "docstore", Name: s.CollectionName, Attempts: 1, Cause: err}
	}

	b.mu.Lock()
	b.collections[s.CollectionName] = s
	b.mu.Unlock()

	return Location{Backend: "docstore", Name: s.CollectionName}, nil
}

func (b *SQLiteDocument) Insert(ctx context.Context, collectionName string, records []map[string]any) (int, error) {
	b.mu.RLock()
	_, ok := b.collections[collectionName]
	b.mu.RUnlock()
	if !ok {
		return 0, &BackendInsertError{Backend: "docstore", Name: collectionName,
			Cause: fmt.Errorf("collection not applied")}
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &BackendInsertError{Backend: "docstore", Name: collectionName, Cause: err}
	}
	defer tx.Rollback()

	q := fmt.Sprintf("INSERT INTO doc_%s (body) VALUES (?)", collectionName)
	for _, rec := range records {
		body, err := json.Marshal(rec)
		if err != nil {
			return 0, &BackendInsertError{Backend: "docstore", Name: collectionName, Cause: err}
		}
		if _, err := tx.ExecContext(ctx, q, string(body)); err != nil {
			return 0, &BackendInsertError{Backend: "docstore", Name: collectionName, Cause: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, &BackendInsertError{Backend: "docstore", Name: collectionName, Cause: err}
	}
	return len(records), nil
}
