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

func newTestRelational(t *testing.T) *SQLiteRelational {
	t.Helper()
	b, err := NewSQLiteRelational(filepath.Join(t.TempDir(), "rel.db"))
	assert.Nil(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func buildSchema(t *testing.T, payload, name string) *schema.Relational {
	t.Helper()
	d, err := structure.AnalyzeBytes([]byte(payload))
	assert.Nil(t, err)
	return schema.BuildRelational(d, name)
}

func (b *SQLiteRelational) countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	err := b.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
	assert.Nil(t, err)
	return n
}

func TestApplyIdempotent(t *testing.T) {
	b := newTestRelational(t)
	s := buildSchema(t, `{"name": "a", "count": 1}`, "json_data_t")
	ctx := context.Background()

	loc, err := b.Apply(ctx, s)
	assert.Nil(t, err)
	assert.Equal(t, "json_data_t", loc.Name)
	assert.Equal(t, "sqlite", loc.Backend)

	// applying the same schema again must not fail
	loc2, err := b.Apply(ctx, s)
	assert.Nil(t, err)
	assert.Equal(t, loc, loc2)
}

func TestInsertWithoutApplyFails(t *testing.T) {
	b := newTestRelational(t)

	_, err := b.Insert(context.Background(), "missing", []map[string]any{{"a": 1.0}})
	var ie *BackendInsertError
	assert.ErrorAs(t, err, &ie)
	assert.Equal(t, "missing", ie.Name)
}

func TestInsertFlatRecords(t *testing.T) {
	b := newTestRelational(t)
	s := buildSchema(t, `{"name": "a", "count": 1}`, "json_data_t")
	ctx := context.Background()

	_, err := b.Apply(ctx, s)
	assert.Nil(t, err)

	records := decode(t, `[{"name": "a", "count": 1}, {"name": "b", "count": 2}]`)
	n, err := b.Insert(ctx, "json_data_t", records)
	assert.Nil(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, b.countRows(t, "json_data_t"))

	var name string
	err = b.db.QueryRow("SELECT name FROM json_data_t WHERE count = 2").Scan(&name)
	assert.Nil(t, err)
	assert.Equal(t, "b", name)
}

func TestInsertFansOutNestedTables(t *testing.T) {
	b := newTestRelational(t)
	s := buildSchema(t, `{"name": "a", "address": {"city": "x"}, "tags": ["p", "q"]}`, "people")
	ctx := context.Background()

	_, err := b.Apply(ctx, s)
	assert.Nil(t, err)

	records := decode(t, `[{"name": "a", "address": {"city": "x"}, "tags": ["p", "q"]}]`)
	n, err := b.Insert(ctx, "people", records)
	assert.Nil(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, 1, b.countRows(t, "people"))
	assert.Equal(t, 1, b.countRows(t, "people_address"))
	assert.Equal(t, 2, b.countRows(t, "people_tags"))

	var city string
	err = b.db.QueryRow("SELECT city FROM people_address WHERE people_id = 1").Scan(&city)
	assert.Nil(t, err)
	assert.Equal(t, "x", city)

	var v string
	err = b.db.QueryRow("SELECT value FROM people_tags WHERE people_id = 1 ORDER BY id LIMIT 1").Scan(&v)
	assert.Nil(t, err)
	assert.Equal(t, "p", v)
}

func TestInsertMissingFieldsLeaveNulls(t *testing.T) {
	b := newTestRelational(t)
	s := buildSchema(t, `[{"name": "a", "count": 1}, {"name": "b"}]`, "json_data_t")
	ctx := context.Background()

	_, err := b.Apply(ctx, s)
	assert.Nil(t, err)

	records := decode(t, `[{"name": "b"}]`)
	_, err = b.Insert(ctx, "json_data_t", records)
	assert.Nil(t, err)

	var count any
	err = b.db.QueryRow("SELECT count FROM json_data_t").Scan(&count)
	assert.Nil(t, err)
	assert.Nil(t, count)
}

func decode(t *testing.T, payload string) []map[string]any {
	t.Helper()
	var out []map[string]any
	assert.Nil(t, json.Unmarshal([]byte(payload), &out))
	return out
}
