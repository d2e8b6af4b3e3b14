package domain

import (
	"fmt"
	"net/url"
)

// SourceKind identifies the fetch mechanism for a source.
type SourceKind string

// Source kinds.
const (
	// KindAPI is a paginated REST API returning a JSON envelope.
	KindAPI SourceKind = "api"

	// KindFeed is an RSS feed.
	KindFeed SourceKind = "feed"

	// KindCrawl is a seed page crawled one hop deep.
	KindCrawl SourceKind = "crawl"
)

// SourceSpec describes one external source to ingest from.
type SourceSpec struct {
	// ID is the unique identifier for the source.
	ID string `json:"id" toml:"id"`

	// Kind selects the fetcher implementation.
	Kind SourceKind `json:"kind" toml:"kind"`

	// BaseURL is the endpoint, feed URL or seed page.
	BaseURL string `json:"baseUrl" toml:"base_url"`

	// Params are source-specific query parameters (API sources).
	Params map[string]string `json:"params,omitempty" toml:"params"`
}

// Validate checks the spec before any fetching begins.
// An invalid spec is the only batch-aborting condition.
func (s *SourceSpec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: source id is required", ErrInvalidSource)
	}
	switch s.Kind {
	case KindAPI, KindFeed, KindCrawl:
	default:
		return fmt.Errorf("%w: unknown kind %q for source %s", ErrInvalidSource, s.Kind, s.ID)
	}
	if s.BaseURL == "" {
		return fmt.Errorf("%w: base_url is required for source %s", ErrInvalidSource, s.ID)
	}
	parsed, err := url.Parse(s.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: base_url for source %s: %v", ErrInvalidSource, s.ID, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: base_url for source %s must be http or https", ErrInvalidSource, s.ID)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: base_url for source %s has no host", ErrInvalidSource, s.ID)
	}
	return nil
}
