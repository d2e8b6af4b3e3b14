package driven

import (
	"context"

	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
)

// DocumentStore persists documents keyed by their deterministic ID.
// Implementations must make a single Upsert call atomic per key:
// concurrent upserts to different IDs run in parallel safely, and
// concurrent upserts to the same ID resolve last-writer-wins.
type DocumentStore interface {
	// Upsert stores or fully replaces a document under doc.ID.
	// "Set", not "insert-if-absent": re-ingesting the same URL replaces
	// the stored value and never duplicates it.
	Upsert(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID.
	// Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// QueryByTag returns documents carrying any of the given values in
	// the named tag dimension. Returns domain.ErrUnknownDimension for
	// dimensions the store does not index.
	QueryByTag(ctx context.Context, dimension string, values []string) ([]domain.Document, error)

	// List returns all documents for a source.
	List(ctx context.Context, sourceID string) ([]domain.Document, error)

	// Delete removes a document by ID.
	Delete(ctx context.Context, id string) error

	// Close releases resources.
	Close() error
}
