package driven

import (
	"context"

	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
)

// Fetcher produces candidate records from one external source.
// Each source kind (api, feed, crawl) implements this interface.
type Fetcher interface {
	// Kind returns the source kind this fetcher handles.
	Kind() domain.SourceKind

	// SourceID returns the configured source ID.
	SourceID() string

	// Fetch streams candidate records and per-page errors.
	// Both channels are closed when the source is exhausted or the
	// context is cancelled. An error on the error channel covers one
	// page or one record only; later pages are still attempted.
	//
	// The fetcher itself enforces the candidate cap: consumers can rely
	// on the record channel delivering at most MaxCandidates records.
	Fetch(ctx context.Context) (<-chan domain.RawRecord, <-chan error)

	// Close releases resources.
	Close() error
}

// FetcherFactory creates fetchers from source specs.
type FetcherFactory interface {
	// Create builds a fetcher for the given spec.
	// Returns domain.ErrUnsupportedKind for unknown kinds.
	Create(spec domain.SourceSpec) (Fetcher, error)
}
