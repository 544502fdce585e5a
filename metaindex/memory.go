package metaindex

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Persistence, handy for tests and for running
// the gateway without a database file.
type Memory struct {
	mu      sync.Mutex
	nextID  int64
	entries []Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) NextID(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return m.nextID, nil
}

func (m *Memory) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) Query(_ context.Context, f Filter) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if matches(e, f) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(e Entry, f Filter) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.CategoryOrSchema != "" && e.CategoryOrSchema != f.CategoryOrSchema {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(e.Filename), q) &&
			!strings.Contains(strings.ToLower(e.Text), q) {
			return false
		}
	}
	return true
}
