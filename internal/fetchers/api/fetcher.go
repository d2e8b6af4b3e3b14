// Package api fetches candidate records from paginated REST APIs that
// return a JSON envelope of documents.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
	"github.com/bankwatch-labs/harvest-cli/internal/core/ports/driven"
	"github.com/bankwatch-labs/harvest-cli/internal/fetchers"
	"github.com/bankwatch-labs/harvest-cli/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// defaultPageSize is used when the source spec carries no page_size param.
const defaultPageSize = 20

// envelope is the JSON page shape the API returns.
type envelope struct {
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
	Items    []item `json:"items"`
}

// item is one API document record.
type item struct {
	Title        string `json:"title"`
	Abstract     string `json:"abstract"`
	Content      string `json:"content"`
	URL          string `json:"url"`
	DocumentType string `json:"documentType"`
	Date         string `json:"date"`
	Language     string `json:"language"`
}

// Fetcher pulls records from a paginated JSON API.
type Fetcher struct {
	spec     domain.SourceSpec
	client   *fetchers.Client
	opts     fetchers.Options
	pageSize int
	now      func() time.Time
}

// New creates an API fetcher for the given source.
func New(spec domain.SourceSpec, opts fetchers.Options) *Fetcher {
	pageSize := defaultPageSize
	if raw, ok := spec.Params["page_size"]; ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			pageSize = n
		}
	}
	return &Fetcher{
		spec:     spec,
		client:   fetchers.NewClient(spec.ID, opts),
		opts:     opts,
		pageSize: pageSize,
		now:      time.Now,
	}
}

// Kind returns the source kind.
func (f *Fetcher) Kind() domain.SourceKind { return domain.KindAPI }

// SourceID returns the source identifier.
func (f *Fetcher) SourceID() string { return f.spec.ID }

// Close releases resources.
func (f *Fetcher) Close() error { return nil }

// Fetch streams records page by page. A failed page is reported on the
// error channel and the next page is still attempted: failure isolation
// is per page, never per source. The page loop is bounded by the
// candidate cap, so a source that keeps failing cannot spin forever.
func (f *Fetcher) Fetch(ctx context.Context) (<-chan domain.RawRecord, <-chan error) {
	records := make(chan domain.RawRecord)
	errs := make(chan error, 1)

	go func() {
		defer close(records)
		defer close(errs)

		maxCandidates := f.opts.MaxCandidates
		if maxCandidates <= 0 {
			maxCandidates = fetchers.DefaultMaxCandidates
		}
		maxPages := (maxCandidates + f.pageSize - 1) / f.pageSize

		emitted := 0
		for page := 1; page <= maxPages && emitted < maxCandidates; page++ {
			select {
			case <-ctx.Done():
				return
			default:
			}

			env, err := f.fetchPage(ctx, page)
			if err != nil {
				select {
				case <-ctx.Done():
					return
				case errs <- err:
				}
				continue // later pages are independent
			}

			for i := range env.Items {
				if emitted >= maxCandidates {
					break
				}
				record := f.toRecord(&env.Items[i])
				if record.URL == "" && record.Title == "" && record.Content == "" {
					logger.Debug("skipping empty API item on page %d of %s", page, f.spec.ID)
					continue
				}
				select {
				case <-ctx.Done():
					return
				case records <- record:
					emitted++
				}
			}

			// A short page means the source is exhausted.
			if len(env.Items) < f.pageSize {
				return
			}
		}
	}()

	return records, errs
}

// fetchPage retrieves and decodes one page.
func (f *Fetcher) fetchPage(ctx context.Context, page int) (*envelope, error) {
	pageURL, err := f.pageURL(page)
	if err != nil {
		return nil, &domain.FetchError{Source: f.spec.ID, Cause: err}
	}

	body, err := f.client.Get(ctx, pageURL)
	if err != nil {
		return nil, err // already a FetchError
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &domain.FetchError{
			Source: f.spec.ID,
			URL:    pageURL,
			Cause:  fmt.Errorf("decoding envelope: %w", err),
		}
	}
	return &env, nil
}

// pageURL builds the request URL for a page, merging spec params.
func (f *Fetcher) pageURL(page int) (string, error) {
	parsed, err := url.Parse(f.spec.BaseURL)
	if err != nil {
		return "", err
	}

	q := parsed.Query()
	for k, v := range f.spec.Params {
		if k == "page_size" {
			continue // fetcher-level knob, not a query param
		}
		q.Set(k, v)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(f.pageSize))
	parsed.RawQuery = q.Encode()

	return parsed.String(), nil
}

// toRecord maps an API item to a raw record.
func (f *Fetcher) toRecord(it *item) domain.RawRecord {
	record := domain.RawRecord{
		SourceID:      f.spec.ID,
		URL:           it.URL,
		Title:         it.Title,
		Summary:       it.Abstract,
		Content:       it.Content,
		DocumentType:  it.DocumentType,
		Language:      it.Language,
		DiscoveredAt:  f.now(),
		FetchStrategy: domain.StrategySearchResult,
	}
	if it.Date != "" {
		if d, err := time.Parse("2006-01-02", it.Date); err == nil {
			record.PublishedDate = d
		}
	}
	return record
}
