// Package query provides the default dispatchers of the pipeline, backed
// by an in-memory resource store.
package query

import (
	"errors"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/r9s-ai/open-resource-api/pkg/document"
)

var (
	ErrNotFound = errors.New("query: resource not found")
	ErrExists   = errors.New("query: resource already exists")
)

type table struct {
	order []string
	rows  map[string]document.Resource
}

// Store keeps resources in memory, per type in insertion order. Stored and
// returned resources are copies.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
	newID  func() string
}

func NewStore() *Store {
	return &Store{tables: map[string]*table{}, newID: uuid.NewString}
}

func (s *Store) table(typ string) *table {
	t, ok := s.tables[typ]
	if !ok {
		t = &table{rows: map[string]document.Resource{}}
		s.tables[typ] = t
	}
	return t
}

// Insert stores r, assigning an id when r has none.
func (s *Store) Insert(r document.Resource) (document.Resource, error) {
	r = r.Clone()
	r.Links = nil
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = s.newID()
	}
	t := s.table(r.Type)
	if _, exists := t.rows[r.ID]; exists {
		return document.Resource{}, ErrExists
	}
	t.rows[r.ID] = r
	t.order = append(t.order, r.ID)
	return r.Clone(), nil
}

func (s *Store) Get(typ, id string) (document.Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[typ]
	if !ok {
		return document.Resource{}, false
	}
	r, ok := t.rows[id]
	if !ok {
		return document.Resource{}, false
	}
	return r.Clone(), true
}

// List returns all resources of typ in insertion order.
func (s *Store) List(typ string) []document.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[typ]
	if !ok {
		return []document.Resource{}
	}
	out := make([]document.Resource, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id].Clone())
	}
	return out
}

func (s *Store) Count(typ string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tables[typ]; ok {
		return len(t.order)
	}
	return 0
}

// Update applies patch to the stored resource. With replace, attributes
// and relationships are replaced wholesale; otherwise the members of patch
// are merged in.
func (s *Store) Update(typ, id string, patch document.Resource, replace bool) (document.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[typ]
	if !ok {
		return document.Resource{}, ErrNotFound
	}
	cur, ok := t.rows[id]
	if !ok {
		return document.Resource{}, ErrNotFound
	}
	patch = patch.Clone()
	next := cur.Clone()
	if replace {
		next.Attributes = patch.Attributes
		next.Relationships = patch.Relationships
		next.Meta = patch.Meta
	} else {
		next.Attributes = merge(next.Attributes, patch.Attributes)
		next.Meta = merge(next.Meta, patch.Meta)
		if len(patch.Relationships) > 0 && next.Relationships == nil {
			next.Relationships = map[string]document.Relationship{}
		}
		maps.Copy(next.Relationships, patch.Relationships)
	}
	t.rows[id] = next
	return next.Clone(), nil
}

func merge(dst, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	maps.Copy(dst, src)
	return dst
}

// UpdateLinkage rewrites the linkage of one relationship through fn. fn
// receives the current linkage and whether the relationship was set.
func (s *Store) UpdateLinkage(typ, id, rel string, fn func(cur document.Linkage, set bool) (document.Linkage, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[typ]
	if !ok {
		return ErrNotFound
	}
	cur, ok := t.rows[id]
	if !ok {
		return ErrNotFound
	}
	old, set := cur.Relationships[rel]
	next, err := fn(old.Data, set)
	if err != nil {
		return err
	}
	r := cur.Clone()
	if r.Relationships == nil {
		r.Relationships = map[string]document.Relationship{}
	}
	r.Relationships[rel] = document.Relationship{Data: next}
	t.rows[id] = r
	return nil
}

func (s *Store) Delete(typ, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[typ]
	if !ok {
		return false
	}
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, v := range t.order {
		if v == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}
