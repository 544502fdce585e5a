package metaindex

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS index_entries (
	id INTEGER PRIMARY KEY,
	filename TEXT NOT NULL,
	kind TEXT NOT NULL,
	category_or_schema TEXT NOT NULL,
	storage_type TEXT NOT NULL DEFAULT '',
	storage_location TEXT NOT NULL,
	doc_text TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_index_entries_kind ON index_entries (kind);
CREATE INDEX IF NOT EXISTS idx_index_entries_category ON index_entries (category_or_schema);
CREATE TABLE IF NOT EXISTS index_counter (
	id INTEGER PRIMARY KEY CHECK (id = 0),
	value INTEGER NOT NULL
);
INSERT OR IGNORE INTO index_counter (id, value) VALUES (0, 0);
`

// SQLite is the durable Persistence. A single write connection in WAL
// mode keeps writers serialized at the driver level; the id counter is
// bumped atomically inside the database so no Go-side lock spans I/O.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("metaindex: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("metaindex: init schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) NextID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE index_counter SET value = value + 1 WHERE id = 0 RETURNING value`,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("metaindex: next id: %w", err)
	}
	return id, nil
}

func (s *SQLite) Append(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO index_entries
			(id, filename, kind, category_or_schema, storage_type, storage_location, doc_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Filename, string(e.Kind), e.CategoryOrSchema,
		e.StorageType, e.StorageLocation, e.Text, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("metaindex: append entry %d: %w", e.ID, err)
	}
	return nil
}

func (s *SQLite) Query(ctx context.Context, f Filter) ([]Entry, error) {
	var where []string
	var args []any

	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.CategoryOrSchema != "" {
		where = append(where, "category_or_schema = ?")
		args = append(args, f.CategoryOrSchema)
	}
	if f.Query != "" {
		where = append(where, "(filename LIKE '%' || ? || '%' OR doc_text LIKE '%' || ? || '%')")
		args = append(args, f.Query, f.Query)
	}

	q := "SELECT id, filename, kind, category_or_schema, storage_type, storage_location, doc_text, created_at FROM index_entries"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("metaindex: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.ID, &e.Filename, &kind, &e.CategoryOrSchema,
			&e.StorageType, &e.StorageLocation, &e.Text, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("metaindex: scan: %w", err)
		}
		e.Kind = Kind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}
