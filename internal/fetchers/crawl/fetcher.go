// Package crawl fetches candidate records by crawling a seed page exactly
// one hop deep: outbound links passing a relevance predicate are fetched
// lazily, one HTTP call per accepted link. The single-hop bound is
// deliberate; without depth or cycle tracking, anything deeper is an
// unbounded blast radius.
package crawl

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
	"github.com/bankwatch-labs/harvest-cli/internal/core/ports/driven"
	"github.com/bankwatch-labs/harvest-cli/internal/fetchers"
	"github.com/bankwatch-labs/harvest-cli/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// defaultKeywords filter link relevance when the spec configures none.
var defaultKeywords = []string{
	"news", "speech", "press", "project", "report", "statement", "document",
}

// link is one outbound link discovered on the seed page.
type link struct {
	href string
	text string
}

// Fetcher crawls a seed page one hop deep.
type Fetcher struct {
	spec     domain.SourceSpec
	client   *fetchers.Client
	opts     fetchers.Options
	keywords []string
	now      func() time.Time
}

// New creates a crawl fetcher for the given source.
// Relevance keywords come from the spec's "keywords" param
// (comma-separated) or fall back to the defaults.
func New(spec domain.SourceSpec, opts fetchers.Options) *Fetcher {
	keywords := defaultKeywords
	if raw, ok := spec.Params["keywords"]; ok && raw != "" {
		keywords = nil
		for _, kw := range strings.Split(raw, ",") {
			if kw = strings.TrimSpace(strings.ToLower(kw)); kw != "" {
				keywords = append(keywords, kw)
			}
		}
	}
	return &Fetcher{
		spec:     spec,
		client:   fetchers.NewClient(spec.ID, opts),
		opts:     opts,
		keywords: keywords,
		now:      time.Now,
	}
}

// Kind returns the source kind.
func (f *Fetcher) Kind() domain.SourceKind { return domain.KindCrawl }

// SourceID returns the source identifier.
func (f *Fetcher) SourceID() string { return f.spec.ID }

// Close releases resources.
func (f *Fetcher) Close() error { return nil }

// Fetch retrieves the seed page, filters its links and lazily fetches
// each accepted link. A failed link fetch is reported on the error
// channel; the remaining links are still attempted.
func (f *Fetcher) Fetch(ctx context.Context) (<-chan domain.RawRecord, <-chan error) {
	records := make(chan domain.RawRecord)
	errs := make(chan error, 1)

	go func() {
		defer close(records)
		defer close(errs)

		seed, err := f.client.Get(ctx, f.spec.BaseURL)
		if err != nil {
			errs <- err
			return
		}

		links := f.relevantLinks(seed)
		logger.Debug("seed %s yielded %d relevant links", f.spec.BaseURL, len(links))

		maxCandidates := f.opts.MaxCandidates
		if maxCandidates <= 0 {
			maxCandidates = fetchers.DefaultMaxCandidates
		}
		if len(links) > maxCandidates {
			links = links[:maxCandidates]
		}

		for _, l := range links {
			select {
			case <-ctx.Done():
				return
			default:
			}

			record, err := f.fetchLink(ctx, l)
			if err != nil {
				select {
				case <-ctx.Done():
					return
				case errs <- err:
				}
				continue
			}

			select {
			case <-ctx.Done():
				return
			case records <- record:
			}
		}
	}()

	return records, errs
}

// fetchLink retrieves one linked page and extracts its readable content.
func (f *Fetcher) fetchLink(ctx context.Context, l link) (domain.RawRecord, error) {
	body, err := f.client.Get(ctx, l.href)
	if err != nil {
		return domain.RawRecord{}, err
	}

	record := domain.RawRecord{
		SourceID:      f.spec.ID,
		URL:           l.href,
		Title:         l.text,
		DiscoveredAt:  f.now(),
		FetchStrategy: domain.StrategyLinked,
	}

	pageURL, _ := url.Parse(l.href)
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		// Keep the link text as a minimal record rather than dropping
		// the page; the validator decides whether it survives.
		logger.Debug("readability failed for %s: %v", l.href, err)
		return record, nil
	}

	if article.Title != "" {
		record.Title = article.Title
	}
	record.Content = strings.TrimSpace(article.TextContent)
	record.Summary = strings.TrimSpace(article.Excerpt)
	if article.Byline != "" {
		record.Content = "By " + article.Byline + "\n" + record.Content
	}
	return record, nil
}

// relevantLinks parses the seed HTML and returns absolute links whose
// anchor text or URL contains a relevance keyword. Duplicate targets and
// off-page fragments are dropped.
func (f *Fetcher) relevantLinks(seed []byte) []link {
	doc, err := html.Parse(bytes.NewReader(seed))
	if err != nil {
		return nil
	}

	base, err := url.Parse(f.spec.BaseURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []link

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if l, ok := f.acceptLink(n, base, seen); ok {
				links = append(links, l)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links
}

// acceptLink applies the relevance predicate to one anchor element.
func (f *Fetcher) acceptLink(n *html.Node, base *url.URL, seen map[string]struct{}) (link, bool) {
	var href string
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = strings.TrimSpace(attr.Val)
			break
		}
	}
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
		return link{}, false
	}

	target, err := base.Parse(href)
	if err != nil {
		return link{}, false
	}
	target.Fragment = ""
	resolved := target.String()

	if resolved == f.spec.BaseURL {
		return link{}, false // self-link
	}
	if _, dup := seen[resolved]; dup {
		return link{}, false
	}

	text := strings.TrimSpace(anchorText(n))
	haystack := strings.ToLower(text + " " + resolved)
	for _, kw := range f.keywords {
		if strings.Contains(haystack, kw) {
			seen[resolved] = struct{}{}
			return link{href: resolved, text: text}, true
		}
	}
	return link{}, false
}

// anchorText collects the text content of an anchor node.
func anchorText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
