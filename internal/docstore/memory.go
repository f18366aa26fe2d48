package docstore

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps every collection in process memory. It backs the
// local-only fallback mode when no remote store is configured, and the tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]Document)}
}

func (m *MemoryStore) collection(name string) map[string]Document {
	c, ok := m.collections[name]
	if !ok {
		c = make(map[string]Document)
		m.collections[name] = c
	}
	return c
}

func (m *MemoryStore) Create(ctx context.Context, collection string, doc Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.collection(collection)[id] = cloneDoc(doc)
	return id, nil
}

func (m *MemoryStore) Put(ctx context.Context, collection, id string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.collection(collection)[id] = cloneDoc(doc)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (m *MemoryStore) List(ctx context.Context, collection string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for id, doc := range m.collections[collection] {
		out = append(out, Record{ID: id, Data: cloneDoc(doc)})
	}
	return out, nil
}

func (m *MemoryStore) QueryEquals(ctx context.Context, collection, field, value string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for id, doc := range m.collections[collection] {
		if AsString(doc[field]) == value {
			out = append(out, Record{ID: id, Data: cloneDoc(doc)})
		}
	}
	return out, nil
}

func (m *MemoryStore) QueryArrayContains(ctx context.Context, collection, field, value string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for id, doc := range m.collections[collection] {
		if slices.Contains(AsStringSlice(doc[field]), value) {
			out = append(out, Record{ID: id, Data: cloneDoc(doc)})
		}
	}
	return out, nil
}

func (m *MemoryStore) Update(ctx context.Context, collection, id string, patch Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range patch {
		doc[k] = v
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections[collection], id)
	return nil
}

func cloneDoc(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
