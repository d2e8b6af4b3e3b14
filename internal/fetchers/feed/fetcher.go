// Package feed fetches candidate records from RSS and Atom feeds.
// Parsing is delegated to gofeed, which handles charset translation and
// the many date formats feeds use in the wild. Items missing a title or
// link are skipped; a feed that fails to parse at all is a fetch error,
// never a silently empty source.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
	"github.com/bankwatch-labs/harvest-cli/internal/core/ports/driven"
	"github.com/bankwatch-labs/harvest-cli/internal/fetchers"
	"github.com/bankwatch-labs/harvest-cli/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// pubDateLayouts are fallbacks for date strings gofeed leaves unparsed.
var pubDateLayouts = []string{
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// Fetcher pulls records from one RSS or Atom feed.
type Fetcher struct {
	spec   domain.SourceSpec
	client *fetchers.Client
	opts   fetchers.Options
	parser *gofeed.Parser
	now    func() time.Time
}

// New creates a feed fetcher for the given source.
func New(spec domain.SourceSpec, opts fetchers.Options) *Fetcher {
	return &Fetcher{
		spec:   spec,
		client: fetchers.NewClient(spec.ID, opts),
		opts:   opts,
		parser: gofeed.NewParser(),
		now:    time.Now,
	}
}

// Kind returns the source kind.
func (f *Fetcher) Kind() domain.SourceKind { return domain.KindFeed }

// SourceID returns the source identifier.
func (f *Fetcher) SourceID() string { return f.spec.ID }

// Close releases resources.
func (f *Fetcher) Close() error { return nil }

// Fetch retrieves the feed once and streams its items. A body that does
// not parse as a feed (an HTML error page served with status 200, say)
// is reported on the error channel as a fetch error.
func (f *Fetcher) Fetch(ctx context.Context) (<-chan domain.RawRecord, <-chan error) {
	records := make(chan domain.RawRecord)
	errs := make(chan error, 1)

	go func() {
		defer close(records)
		defer close(errs)

		body, err := f.client.Get(ctx, f.spec.BaseURL)
		if err != nil {
			errs <- err
			return
		}

		feed, err := f.parser.Parse(bytes.NewReader(body))
		if err != nil {
			errs <- &domain.FetchError{
				Source: f.spec.ID,
				URL:    f.spec.BaseURL,
				Cause:  fmt.Errorf("parsing feed: %w", err),
			}
			return
		}

		maxCandidates := f.opts.MaxCandidates
		if maxCandidates <= 0 {
			maxCandidates = fetchers.DefaultMaxCandidates
		}

		emitted := 0
		for _, it := range feed.Items {
			if emitted >= maxCandidates {
				return
			}
			if it == nil || it.Title == "" || it.Link == "" {
				// Skip silently: not an error, just an unusable item.
				logger.Debug("skipping feed item without title or link in %s", f.spec.ID)
				continue
			}

			select {
			case <-ctx.Done():
				return
			case records <- f.toRecord(it):
				emitted++
			}
		}
	}()

	return records, errs
}

// toRecord maps a feed item to a raw record.
func (f *Fetcher) toRecord(it *gofeed.Item) domain.RawRecord {
	record := domain.RawRecord{
		SourceID:      f.spec.ID,
		URL:           strings.TrimSpace(it.Link),
		Title:         strings.TrimSpace(it.Title),
		Summary:       strings.TrimSpace(it.Description),
		Content:       strings.TrimSpace(it.Content),
		DocumentType:  docType(it.Categories),
		DiscoveredAt:  f.now(),
		FetchStrategy: domain.StrategyFeed,
	}

	switch {
	case it.PublishedParsed != nil:
		record.PublishedDate = it.PublishedParsed.UTC()
	case it.Published != "":
		if d, ok := parsePubDate(it.Published); ok {
			record.PublishedDate = d
		}
	}
	return record
}

// docType maps the item categories to a document type string, taking the
// first category that maps to something more specific than an article.
func docType(categories []string) string {
	for _, c := range categories {
		if mapped := docTypeFor(c); mapped != string(domain.TypeArticle) {
			return mapped
		}
	}
	return string(domain.TypeArticle)
}

// docTypeFor maps one feed category to a document type string.
func docTypeFor(category string) string {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "speeches", "speech":
		return string(domain.TypeSpeech)
	case "press release", "press releases":
		return string(domain.TypePressRelease)
	case "blog", "blogs":
		return string(domain.TypeBlog)
	default:
		return string(domain.TypeArticle)
	}
}

// parsePubDate tries the fallback date layouts.
func parsePubDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	logger.Debug("unparseable pubDate %q", s)
	return time.Time{}, false
}

// String describes the fetcher for logs.
func (f *Fetcher) String() string {
	return fmt.Sprintf("feed(%s)", f.spec.BaseURL)
}
