package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/shapestore/shapestore/schema"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteRelational applies relational schemas onto a SQLite database.
// Every statement it issues is IF NOT EXISTS so concurrent appliers of
// the same shape cannot fail each other.
type SQLiteRelational struct {
	db *sql.DB

	mu      sync.RWMutex
	schemas map[string]*schema.Relational
}

func NewSQLiteRelational(path string) (*SQLiteRelational, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open relational database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &SQLiteRelational{db: db, schemas: make(map[string]*schema.Relational)}, nil
}

func (b *SQLiteRelational) Close() error { return b.db.Close() }

func (b *SQLiteRelational) Apply(ctx context.Context, s *schema.Relational) (Location, error) {
	if err := b.applyTable(ctx, s); err != nil {
		return Location{}, &BackendApplyError{Backend: "sqlite", Name: s.TableName, Attempts: 1, Cause: err}
	}

	b.mu.Lock()
	b.schemas[s.TableName] = s
	b.mu.Unlock()

	return Location{Backend: "sqlite", Name: s.TableName}, nil
}

func (b *SQLiteRelational) applyTable(ctx context.Context, t *schema.Relational) error {
	if _, err := b.db.ExecContext(ctx, createTableSQL(t)); err != nil {
		return err
	}
	for _, c := range t.Columns {
		if c.ForeignKey == nil {
			continue
		}
		idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)",
			t.TableName, c.Name, t.TableName, c.Name)
		if _, err := b.db.ExecContext(ctx, idx); err != nil {
			return err
		}
	}
	for _, nt := range t.NestedTables {
		if err := b.applyTable(ctx, nt); err != nil {
			return err
		}
	}
	return nil
}

func createTableSQL(t *schema.Relational) string {
	defs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		switch {
		case c.PrimaryKey:
			defs = append(defs, fmt.Sprintf("%s INTEGER PRIMARY KEY AUTOINCREMENT", c.Name))
		case c.ForeignKey != nil:
			defs = append(defs, fmt.Sprintf("%s INTEGER REFERENCES %s(%s)",
				c.Name, c.ForeignKey.Table, c.ForeignKey.Column))
		default:
			defs = append(defs, fmt.Sprintf("%s %s", c.Name, c.Type))
		}
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", t.TableName, strings.Join(defs, ", "))
}

// Insert writes records into a previously applied schema, fanning nested
// object and array fields out into their nested tables. All records go
// in one transaction; a failure rolls the whole batch back and surfaces
// as BackendInsertError while the schema stays applied.
func (b *SQLiteRelational) Insert(ctx context.Context, tableName string, records []map[string]any) (int, error) {
	b.mu.RLock()
	s, ok := b.schemas[tableName]
	b.mu.RUnlock()
	if !ok {
		return 0, &BackendInsertError{Backend: "sqlite", Name: tableName,
			Cause: fmt.Errorf("schema not applied")}
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &BackendInsertError{Backend: "sqlite", Name: tableName, Cause: err}
	}
	defer tx.Rollback()

	for _, rec := range records {
		if _, err := insertRow(ctx, tx, s, rec, "", 0); err != nil {
			return 0, &BackendInsertError{Backend: "sqlite", Name: tableName, Cause: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, &BackendInsertError{Backend: "sqlite", Name: tableName, Cause: err}
	}
	return len(records), nil
}

// insertRow inserts one row and recurses into nested tables. rec is a
// decoded JSON object, or a bare scalar for value tables.
func insertRow(ctx context.Context, tx *sql.Tx, t *schema.Relational, rec any, parentCol string, parentID int64) (int64, error) {
	var cols []string
	var vals []any

	if parentCol != "" {
		cols = append(cols, parentCol)
		vals = append(vals, parentID)
	}

	obj, isObj := rec.(map[string]any)
	for _, c := range t.Columns {
		if c.PrimaryKey || c.ForeignKey != nil {
			continue
		}
		if c.Name == "value" && c.Field == "" {
			cols = append(cols, c.Name)
			vals = append(vals, scalarValue(rec))
			continue
		}
		if !isObj {
			continue
		}
		v, present := obj[c.Field]
		if !present {
			continue
		}
		cols = append(cols, c.Name)
		vals = append(vals, scalarValue(v))
	}

	var q string
	if len(cols) == 0 {
		q = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING id", t.TableName)
	} else {
		q = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
			t.TableName, strings.Join(cols, ", "),
			strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	}

	var id int64
	if err := tx.QueryRowContext(ctx, q, vals...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert %s: %w", t.TableName, err)
	}

	if !isObj {
		return id, nil
	}

	for _, nt := range t.NestedTables {
		child, present := obj[nt.ParentField]
		if !present || child == nil {
			continue
		}
		fkCol := t.TableName + "_id"
		if nt.IsArray {
			elems, ok := child.([]any)
			if !ok {
				continue
			}
			for _, e := range elems {
				if _, err := insertRow(ctx, tx, nt, e, fkCol, id); err != nil {
					return 0, err
				}
			}
		} else {
			if _, err := insertRow(ctx, tx, nt, child, fkCol, id); err != nil {
				return 0, err
			}
		}
	}
	return id, nil
}

// scalarValue coerces a decoded JSON value into something the driver
// accepts. Composite values hit the textual fallback.
func scalarValue(v any) any {
	switch v.(type) {
	case nil, string, float64, bool, int64, int:
		return v
	default:
		bs, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(bs)
	}
}
