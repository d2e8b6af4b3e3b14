package domain

import "time"

// RawRecord is a candidate document as emitted by a fetcher, before
// normalisation. Fields are best-effort: fetchers populate what the source
// provides and leave the rest zero.
type RawRecord struct {
	// SourceID links to the SourceSpec that produced this record.
	SourceID string

	// URL is the as-scraped location of the candidate.
	URL string

	// Title is the source-provided title, if any.
	Title string

	// Summary is the source-provided abstract, if any.
	Summary string

	// Content is the source-provided body text, if any.
	Content string

	// DocumentType is the source-provided type string, if any.
	// Mapped through ParseDocumentType during normalisation.
	DocumentType string

	// PublishedDate is the source-provided date. Zero when the source
	// carries none; the normaliser then infers one from Content.
	PublishedDate time.Time

	// DiscoveredAt is when the fetcher saw the record.
	DiscoveredAt time.Time

	// FetchStrategy is how the record was obtained.
	FetchStrategy FetchStrategy

	// Language is the source-provided language code, if any.
	Language string
}

// HasAnyField reports whether the record carries at least one of title,
// content or URL. Records with none of the three are irrecoverable and
// fail normalisation.
func (r *RawRecord) HasAnyField() bool {
	return r.Title != "" || r.Content != "" || r.URL != ""
}
