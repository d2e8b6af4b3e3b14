package services

import (
	"fmt"

	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
	"github.com/bankwatch-labs/harvest-cli/internal/core/ports/driven"
	"github.com/bankwatch-labs/harvest-cli/internal/fetchers"
	"github.com/bankwatch-labs/harvest-cli/internal/fetchers/api"
	"github.com/bankwatch-labs/harvest-cli/internal/fetchers/crawl"
	"github.com/bankwatch-labs/harvest-cli/internal/fetchers/feed"
)

// Ensure FetcherRegistry implements the interface.
var _ driven.FetcherFactory = (*FetcherRegistry)(nil)

// FetcherRegistry maps source kinds to the built-in fetcher
// implementations. All fetchers it creates share one set of fetch
// limits.
type FetcherRegistry struct {
	opts fetchers.Options
}

// NewFetcherRegistry creates a registry with the given fetch limits.
func NewFetcherRegistry(opts fetchers.Options) *FetcherRegistry {
	return &FetcherRegistry{opts: opts}
}

// Create builds a fetcher for the given source spec.
func (r *FetcherRegistry) Create(spec domain.SourceSpec) (driven.Fetcher, error) {
	switch spec.Kind {
	case domain.KindAPI:
		return api.New(spec, r.opts), nil
	case domain.KindFeed:
		return feed.New(spec, r.opts), nil
	case domain.KindCrawl:
		return crawl.New(spec, r.opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, spec.Kind)
	}
}

// Kinds lists the source kinds this registry supports.
func (r *FetcherRegistry) Kinds() []domain.SourceKind {
	return []domain.SourceKind{domain.KindAPI, domain.KindFeed, domain.KindCrawl}
}
