package metaindex

import (
	"context"
	"sort"
	"time"
)

type Kind string

const (
	KindMedia    Kind = "media"
	KindDocument Kind = "document"
	KindJSON     Kind = "json"
)

// Entry is one ingested item's index record. Entries are created once
// per successful ingestion and never mutated or deleted by this core.
type Entry struct {
	ID               int64     `json:"id"`
	Filename         string    `json:"filename"`
	Kind             Kind      `json:"kind"`
	CategoryOrSchema string    `json:"category_or_schema"`
	StorageType      string    `json:"storage_type,omitempty"`
	StorageLocation  string    `json:"storage_location"`
	Text             string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
}

// Filter narrows a search. Zero values mean "any". Query is a
// case-insensitive substring match over filename and extracted text.
type Filter struct {
	Kind             Kind
	CategoryOrSchema string
	Query            string
	Limit            int
}

type Stats struct {
	MediaFiles    int      `json:"media_files"`
	JSONFiles     int      `json:"json_files"`
	DocumentFiles int      `json:"document_files"`
	Categories    []string `json:"category_list"`
	Schemas       []string `json:"schema_list"`
}

// Persistence is the capability the indexer consumes. NextID must hand
// out strictly increasing, unique values under concurrent callers; the
// indexer itself holds no lock across these calls so implementations
// must be atomic on their own.
type Persistence interface {
	NextID(ctx context.Context) (int64, error)
	Append(ctx context.Context, e Entry) error
	Query(ctx context.Context, f Filter) ([]Entry, error)
}

type Indexer struct {
	p Persistence
}

func NewIndexer(p Persistence) *Indexer {
	return &Indexer{p: p}
}

// Record assigns the next id and appends the entry. Calling it twice
// records two distinct entries; deduplication is the caller's problem.
func (ix *Indexer) Record(ctx context.Context, e Entry) (int64, error) {
	id, err := ix.p.NextID(ctx)
	if err != nil {
		return 0, err
	}
	e.ID = id
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := ix.p.Append(ctx, e); err != nil {
		return 0, err
	}
	return id, nil
}

// Search returns matching entries newest-first. Limit defaults to 20.
func (ix *Indexer) Search(ctx context.Context, f Filter) ([]Entry, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	return ix.p.Query(ctx, f)
}

// Stats aggregates counts per kind plus the distinct category and
// schema sets observed so far.
func (ix *Indexer) Stats(ctx context.Context) (Stats, error) {
	all, err := ix.p.Query(ctx, Filter{Limit: -1})
	if err != nil {
		return Stats{}, err
	}

	var s Stats
	categories := make(map[string]struct{})
	schemas := make(map[string]struct{})
	for _, e := range all {
		switch e.Kind {
		case KindMedia:
			s.MediaFiles++
			categories[e.CategoryOrSchema] = struct{}{}
		case KindDocument:
			s.DocumentFiles++
			categories[e.CategoryOrSchema] = struct{}{}
		case KindJSON:
			s.JSONFiles++
			schemas[e.CategoryOrSchema] = struct{}{}
		}
	}
	for c := range categories {
		s.Categories = append(s.Categories, c)
	}
	for c := range schemas {
		s.Schemas = append(s.Schemas, c)
	}
	sort.Strings(s.Categories)
	sort.Strings(s.Schemas)
	return s, nil
}
