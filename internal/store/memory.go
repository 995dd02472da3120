package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps everything in memory. Data is lost on restart.
// Safe for concurrent use. Unique indexes are emulated so the
// duplicate-key behavior matches the mongo backend.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Document
	uniques     map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]Document),
		uniques:     make(map[string][]string),
	}
}

// copyDoc returns a copy deep enough that callers cannot mutate stored
// state through returned maps or lists.
func copyDoc(src Document) Document {
	if src == nil {
		return nil
	}
	dst := make(Document, len(src))
	for k, v := range src {
		dst[k] = copyValue(v)
	}
	return dst
}

func copyValue(v any) any {
	switch t := v.(type) {
	case Document:
		return copyDoc(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func matchValue(v any, m Match) bool {
	switch m.Op {
	case OpEq:
		return stringify(v) == m.Value
	case OpContains:
		want := strings.ToLower(m.Value)
		if list, ok := v.([]any); ok {
			for _, e := range list {
				if strings.Contains(strings.ToLower(stringify(e)), want) {
					return true
				}
			}
			return false
		}
		return strings.Contains(strings.ToLower(stringify(v)), want)
	case OpPrefix:
		return strings.HasPrefix(stringify(v), m.Value)
	default:
		return false
	}
}

func matches(doc Document, filter Filter) bool {
	for field, m := range filter {
		v, ok := doc[field]
		if !ok {
			return false
		}
		if !matchValue(v, m) {
			return false
		}
	}
	return true
}

func (m *MemoryStore) InsertOne(_ context.Context, collection string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, field := range m.uniques[collection] {
		v, ok := doc[field]
		if !ok {
			continue
		}
		for _, existing := range m.collections[collection] {
			if stringify(existing[field]) == stringify(v) {
				return fmt.Errorf("%w: %s=%v", ErrDuplicateKey, field, v)
			}
		}
	}

	m.collections[collection] = append(m.collections[collection], copyDoc(doc))
	return nil
}

func (m *MemoryStore) Find(_ context.Context, collection string, filter Filter, opts FindOptions) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Document{}
	for _, doc := range m.collections[collection] {
		if matches(doc, filter) {
			out = append(out, copyDoc(doc))
		}
	}

	if opts.SortField != "" {
		field := opts.SortField
		sort.SliceStable(out, func(i, j int) bool {
			a, b := stringify(out[i][field]), stringify(out[j][field])
			if opts.SortDesc {
				return a > b
			}
			return a < b
		})
	}

	if opts.Skip > 0 {
		if opts.Skip >= int64(len(out)) {
			return []Document{}, nil
		}
		out = out[opts.Skip:]
	}
	if opts.Limit > 0 && int64(len(out)) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MemoryStore) FindOne(_ context.Context, collection string, filter Filter) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, doc := range m.collections[collection] {
		if matches(doc, filter) {
			return copyDoc(doc), nil
		}
	}
	return nil, ErrNoDocuments
}

func (m *MemoryStore) FindOneAndUpdate(_ context.Context, collection string, filter Filter, set Document) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, doc := range m.collections[collection] {
		if matches(doc, filter) {
			for k, v := range set {
				doc[k] = copyValue(v)
			}
			return copyDoc(doc), nil
		}
	}
	return nil, ErrNoDocuments
}

func (m *MemoryStore) FindOneAndDelete(_ context.Context, collection string, filter Filter) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collections[collection]
	for i, doc := range docs {
		if matches(doc, filter) {
			m.collections[collection] = append(docs[:i:i], docs[i+1:]...)
			return copyDoc(doc), nil
		}
	}
	return nil, ErrNoDocuments
}

func (m *MemoryStore) Count(_ context.Context, collection string, filter Filter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, doc := range m.collections[collection] {
		if matches(doc, filter) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) EnsureUniqueIndex(_ context.Context, collection, field string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.uniques[collection] {
		if f == field {
			return nil
		}
	}
	m.uniques[collection] = append(m.uniques[collection], field)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close(context.Context) error { return nil }
