package docs

import (
	"context"
	"sort"
	"sync"
	"time"

	"docuvault.org/internal/ids"
)

// MemoryStore implements Store in process memory. Used in tests and when the
// service runs without a database.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]*Document
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{documents: make(map[string]*Document)}
}

func (s *MemoryStore) Create(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == "" {
		doc.ID = ids.New()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	cp := *doc
	s.documents[doc.ID] = &cp
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *MemoryStore) ListByOwner(ctx context.Context, ownerID string) ([]*Document, error) {
	return s.list(func(d *Document) bool { return d.OwnerID == ownerID })
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]*Document, error) {
	return s.list(func(*Document) bool { return true })
}

func (s *MemoryStore) Update(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.documents[doc.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Title = doc.Title
	stored.Content = doc.Content
	stored.Status = doc.Status
	stored.Tags = append([]string(nil), doc.Tags...)
	stored.Public = doc.Public
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return ErrNotFound
	}
	delete(s.documents, id)
	return nil
}

func (s *MemoryStore) IncrementViews(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return ErrNotFound
	}
	doc.ViewCount++
	return nil
}

func (s *MemoryStore) list(keep func(*Document) bool) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Document
	for _, doc := range s.documents {
		if keep(doc) {
			cp := *doc
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
