package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shapestore/shapestore/schema"
	"github.com/shapestore/shapestore/structure"
)

func newTestDocument(t *testing.T) *SQLiteDocument {
	t.Helper()
	b, err := NewSQLiteDocument(filepath.Join(t.TempDir(), "docs.db"))
	assert.Nil(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func buildDocSchema(t *testing.T, payload, name string) *schema.Document {
	t.Helper()
	d, err := structure.AnalyzeBytes([]byte(payload))
	assert.Nil(t, err)
	return schema.BuildDocument(d, name)
}

func TestDocumentApplyIdempotent(t *testing.T) {
	b := newTestDocument(t)
	s := buildDocSchema(t, `{"a": {"b": {"c": {"d": 1}}}}`, "json_data_deep")
	ctx := context.Background()

	loc, err := b.Apply(ctx, s)
	assert.Nil(t, err)
	assert.Equal(t, "docstore", loc.Backend)
	assert.Equal(t, "json_data_deep", loc.Name)

	_, err = b.Apply(ctx, s)
	assert.Nil(t, err)

	var n int
	err = b.db.QueryRow("SELECT COUNT(*) FROM collections WHERE name = ?", "json_data_deep").Scan(&n)
	assert.Nil(t, err)
	assert.Equal(t, 1, n)
}

func TestDocumentApplyStoresFieldStructure(t *testing.T) {
	b := newTestDocument(t)
	s := buildDocSchema(t, `{"user": {"name": "a"}}`, "json_data_u")
	ctx := context.Background()

	_, err := b.Apply(ctx, s)
	assert.Nil(t, err)

	var raw string
	err = b.db.QueryRow("SELECT field_structure FROM collections WHERE name = ?", "json_data_u").Scan(&raw)
	assert.Nil(t, err)

	var fs map[string]schema.DocumentField
	assert.Nil(t, json.Unmarshal([]byte(raw), &fs))
	assert.True(t, fs["user"].Nested)
}

func TestDocumentInsertRoundTrip(t *testing.T) {
	b := newTestDocument(t)
	s := buildDocSchema(t, `{"v": 1}`, "json_data_v")
	ctx := context.Background()

	_, err := b.Apply(ctx, s)
	assert.Nil(t, err)

	n, err := b.Insert(ctx, "json_data_v", []map[string]any{{"v": 1.0}, {"v": 2.0}})
	assert.Nil(t, err)
	assert.Equal(t, 2, n)

	var count int
	err = b.db.QueryRow("SELECT COUNT(*) FROM doc_json_data_v").Scan(&count)
	assert.Nil(t, err)
	assert.Equal(t, 2, count)

	var body string
	err = b.db.QueryRow("SELECT body FROM doc_json_data_v ORDER BY id LIMIT 1").Scan(&body)
	assert.Nil(t, err)

	var rec map[string]any
	assert.Nil(t, json.Unmarshal([]byte(body), &rec))
	assert.Equal(t, 1.0, rec["v"])
}

func TestDocumentInsertWithoutApplyFails(t *testing.T) {
	b := newTestDocument(t)

	_, err := b.Insert(context.Background(), "missing", []map[string]any{{"v": 1.0}})
	var ie *BackendInsertError
	assert.ErrorAs(t, err, &ie)
}
