package storage

import (
	"context"
	"fmt"

	"github.com/shapestore/shapestore/schema"
)

// Location names where a schema's data lives.
type Location struct {
	Backend string `json:"backend"`
	Name    string `json:"name"` // table or collection name
}

func (l Location) String() string {
	return fmt.Sprintf("%s (%s)", l.Name, l.Backend)
}

// RelationalBackend applies relational schemas and inserts records.
// Apply must be idempotent: two callers racing on the same schema must
// both succeed.
type RelationalBackend interface {
	Apply(ctx context.Context, s *schema.Relational) (Location, error)
	Insert(ctx context.Context, tableName string, records []map[string]any) (int, error)
}

// DocumentBackend is the document-store counterpart.
type DocumentBackend interface {
	Apply(ctx context.Context, s *schema.Document) (Location, error)
	Insert(ctx context.Context, collectionName string, records []map[string]any) (int, error)
}

// BackendApplyError means the backend could not create or apply a
// schema. It is retryable up to the pipeline's attempt budget; if all
// attempts fail the ingestion fails and nothing is indexed.
type BackendApplyError struct {
	Backend  string
	Name     string
	Attempts int
	Cause    error
}

func (e *BackendApplyError) Error() string {
	return fmt.Sprintf("storage: apply %q on %s failed after %d attempt(s): %v",
		e.Name, e.Backend, e.Attempts, e.Cause)
}

func (e *BackendApplyError) Unwrap() error { return e.Cause }

// BackendInsertError means the schema applied but the data write
// failed. The schema stays applied; the caller can retry the insert.
type BackendInsertError struct {
	Backend string
	Name    string
	Cause   error
}

func (e *BackendInsertError) Error() string {
	return fmt.Sprintf("storage: insert into %q on %s failed: %v", e.Name, e.Backend, e.Cause)
}

func (e *BackendInsertError) Unwrap() error { return e.Cause }
