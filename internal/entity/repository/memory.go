package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/tourcraft/tourcraft/internal/entity"
)

// MemoryStore is an in-memory document store used for local development and
// unit tests. Documents keep insertion order; reads and writes copy records
// so callers never alias stored state.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: map[string]*memoryCollection{}}
}

// Collection returns (creating lazily) the named collection.
func (m *MemoryStore) Collection(name, idField string) Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idField == "" {
		idField = entity.FieldID
	}
	c, ok := m.collections[name]
	if !ok {
		c = &memoryCollection{store: m, name: name, idField: idField, docs: map[string]entity.Record{}}
		m.collections[name] = c
	}
	return c
}

type memoryCollection struct {
	store   *MemoryStore
	name    string
	idField string
	order   []string
	docs    map[string]entity.Record
}

func (c *memoryCollection) Get(_ context.Context, id string) (entity.Record, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	if d, ok := c.docs[id]; ok {
		return d.Clone(), nil
	}
	return nil, ErrNotFound
}

func (c *memoryCollection) Find(_ context.Context, q Query) ([]entity.Record, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	out := []entity.Record{}
	for _, id := range c.order {
		d := c.docs[id]
		if !q.matches(d) {
			continue
		}
		out = append(out, d.Clone())
		if q.Limit > 0 && q.SortBy == "" && len(out) == q.Limit {
			break
		}
	}
	if q.SortBy != "" {
		sortRecords(out, q.SortBy)
		if q.Limit > 0 && len(out) > q.Limit {
			out = out[:q.Limit]
		}
	}
	return out, nil
}

func (c *memoryCollection) Count(_ context.Context, q Query) (int64, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	var n int64
	for _, d := range c.docs {
		if q.matches(d) {
			n++
		}
	}
	return n, nil
}

func (c *memoryCollection) Insert(_ context.Context, rec entity.Record) error {
	id := rec.String(c.idField)
	if id == "" {
		return fmt.Errorf("insert into %s: missing %s", c.name, c.idField)
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if _, dup := c.docs[id]; dup {
		return fmt.Errorf("insert into %s: duplicate id %q", c.name, id)
	}
	c.docs[id] = rec.Clone()
	c.order = append(c.order, id)
	return nil
}

func (c *memoryCollection) Update(_ context.Context, id string, set entity.Record) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	d, ok := c.docs[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range set.Clone() {
		d[k] = v
	}
	return nil
}

func (c *memoryCollection) Delete(_ context.Context, id string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return ErrNotFound
	}
	delete(c.docs, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}
