package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
	"github.com/bankwatch-labs/harvest-cli/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Used for dry runs and tests; everything is lost on process exit.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
	}
}

// Upsert stores or fully replaces a document under its ID.
func (s *DocumentStore) Upsert(_ context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		return &domain.StoreError{Op: "upsert", Cause: domain.ErrInvalidInput}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// Get retrieves a document by ID.
func (s *DocumentStore) Get(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// QueryByTag returns documents carrying any of the given values in the
// named tag dimension.
func (s *DocumentStore) QueryByTag(_ context.Context, dimension string, values []string) ([]domain.Document, error) {
	if !slices.Contains(domain.TagDimensions(), dimension) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDimension, dimension)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Document
	for id := range s.documents {
		doc := s.documents[id]
		for _, v := range values {
			if slices.Contains(doc.TagValues(dimension), v) {
				result = append(result, doc)
				break
			}
		}
	}
	return result, nil
}

// List returns documents for a source.
func (s *DocumentStore) List(_ context.Context, sourceID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Document
	for id := range s.documents {
		doc := s.documents[id]
		if doc.SourceReference.SourceID == sourceID {
			result = append(result, doc)
		}
	}
	return result, nil
}

// Delete removes a document by ID.
func (s *DocumentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *DocumentStore) Close() error {
	return nil
}

// Len reports the number of stored documents. Test helper.
func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}
