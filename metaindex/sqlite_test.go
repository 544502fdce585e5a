package metaindex

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "index.db"))
	assert.Nil(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ix := NewIndexer(s)
	ctx := context.Background()

	id, err := ix.Record(ctx, Entry{
		Filename:         "cat.jpg",
		Kind:             KindMedia,
		CategoryOrSchema: "animals",
		StorageLocation:  "animals/cat.jpg",
	})
	assert.Nil(t, err)
	assert.Equal(t, int64(1), id)

	got, err := ix.Search(ctx, Filter{Kind: KindMedia})
	assert.Nil(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "cat.jpg", got[0].Filename)
	assert.Equal(t, "animals", got[0].CategoryOrSchema)
	assert.Equal(t, "animals/cat.jpg", got[0].StorageLocation)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestSQLiteQueryMatchesText(t *testing.T) {
	s := newTestSQLite(t)
	ix := NewIndexer(s)
	ctx := context.Background()

	_, err := ix.Record(ctx, Entry{
		Filename:         "notes.txt",
		Kind:             KindDocument,
		CategoryOrSchema: "education",
		StorageLocation:  "education/notes.txt",
		Text:             "lecture about goroutines",
	})
	assert.Nil(t, err)

	got, err := ix.Search(ctx, Filter{Query: "goroutines"})
	assert.Nil(t, err)
	assert.Len(t, got, 1)

	got, err = ix.Search(ctx, Filter{Query: "nonexistent"})
	assert.Nil(t, err)
	assert.Empty(t, got)
}

func TestSQLiteNextIDConcurrent(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	const n = 32
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			id, err := s.NextID(ctx)
			assert.Nil(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, n)
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	s, err := NewSQLite(path)
	assert.Nil(t, err)
	ix := NewIndexer(s)
	ctx := context.Background()

	_, err = ix.Record(ctx, Entry{Filename: "a.json", Kind: KindJSON, CategoryOrSchema: "json_data_x", StorageLocation: "x"})
	assert.Nil(t, err)
	assert.Nil(t, s.Close())

	s2, err := NewSQLite(path)
	assert.Nil(t, err)
	defer s2.Close()

	// counter keeps going after a restart
	id, err := s2.NextID(ctx)
	assert.Nil(t, err)
	assert.Equal(t, int64(2), id)

	got, err := NewIndexer(s2).Search(ctx, Filter{Kind: KindJSON})
	assert.Nil(t, err)
	assert.Len(t, got, 1)
}
