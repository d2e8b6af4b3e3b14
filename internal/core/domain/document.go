package domain

import "time"

// DocumentType classifies a document by its editorial form.
type DocumentType string

// Known document types. Unrecognised source values normalise to TypeArticle.
const (
	TypeSpeech       DocumentType = "speech"
	TypeArticle      DocumentType = "article"
	TypeStrategy     DocumentType = "strategy"
	TypeReport       DocumentType = "report"
	TypeInitiative   DocumentType = "initiative"
	TypePressRelease DocumentType = "press-release"
	TypeBlog         DocumentType = "blog"
	TypeWhitepaper   DocumentType = "whitepaper"
	TypePolicyBrief  DocumentType = "policy-brief"
)

// ParseDocumentType maps a source-provided type string to a DocumentType.
// Unknown values fall back to TypeArticle rather than failing.
func ParseDocumentType(s string) DocumentType {
	switch DocumentType(s) {
	case TypeSpeech, TypeArticle, TypeStrategy, TypeReport, TypeInitiative,
		TypePressRelease, TypeBlog, TypeWhitepaper, TypePolicyBrief:
		return DocumentType(s)
	default:
		return TypeArticle
	}
}

// Priority indicates how prominently a document should surface downstream.
type Priority string

// Priority levels.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Status tracks the publication state of a document.
type Status string

// Status values.
const (
	StatusCurrent  Status = "current"
	StatusArchived Status = "archived"
	StatusDraft    Status = "draft"
	StatusFinal    Status = "final"
)

// Tags holds the metadata dimensions extracted from a document's text.
// Every field is derived purely from title+content+url and is recomputed
// on each normalisation; it carries no hidden state.
type Tags struct {
	// Sectors are thematic areas (e.g. "energy", "education").
	Sectors []string `json:"sectors"`

	// Regions are geographic areas the document concerns.
	Regions []string `json:"regions"`

	// Initiatives are named programmes referenced in the text.
	Initiatives []string `json:"initiatives"`

	// Authors are names extracted from byline patterns.
	Authors []string `json:"authors"`

	// Departments are organisational units referenced in the text.
	Departments []string `json:"departments"`

	// Priority is derived from document type and VIP author presence.
	Priority Priority `json:"priority"`

	// Status is the publication state. Defaults to StatusCurrent.
	Status Status `json:"status"`
}

// DocMetadata holds derived document statistics.
type DocMetadata struct {
	// Language is the document language code (e.g. "en").
	Language string `json:"language"`

	// WordCount is the number of whitespace-separated words in Content.
	WordCount int `json:"wordCount"`

	// ReadingTime is ceil(WordCount/200) in minutes.
	ReadingTime int `json:"readingTime"`
}

// FetchStrategy records how a document was discovered.
type FetchStrategy string

// Fetch strategies.
const (
	StrategyDirect       FetchStrategy = "direct"
	StrategyLinked       FetchStrategy = "linked"
	StrategySearchResult FetchStrategy = "search-result"
	StrategyFeed         FetchStrategy = "feed"
)

// SourceReference records the provenance of a document.
type SourceReference struct {
	// SourceID links to the SourceSpec that produced this document.
	SourceID string `json:"sourceId"`

	// DiscoveredAt is when the fetcher first saw the record.
	DiscoveredAt time.Time `json:"discoveredAt"`

	// FetchStrategy is how the record was obtained.
	FetchStrategy FetchStrategy `json:"fetchStrategy"`

	// DateInferred is true when PublishedDate was scanned out of the
	// content or defaulted to the ingestion time, rather than taken from
	// an explicit source field. Downstream consumers should discount
	// inferred dates.
	DateInferred bool `json:"dateInferred"`
}

// Document is the canonical ingested unit.
// A Document is immutable once validated; re-ingesting the same source URL
// produces a new value that replaces the stored one under the same ID.
type Document struct {
	// ID is derived deterministically from SourceURL, so re-ingestion
	// upserts rather than duplicates.
	ID string `json:"id"`

	// Title is the human-readable title.
	Title string `json:"title"`

	// Summary is a short abstract. Falls back to a generated excerpt of
	// Content when the source provides none.
	Summary string `json:"summary"`

	// Content is the full text. May equal Summary when the source only
	// provides an abstract.
	Content string `json:"content"`

	// URL is the canonical location after redirects.
	URL string `json:"url"`

	// SourceURL is the as-scraped location. ID is a pure function of this.
	SourceURL string `json:"sourceUrl"`

	// PublishedDate is the publication date, truncated to a calendar day.
	PublishedDate time.Time `json:"publishedDate"`

	// DocumentType classifies the document.
	DocumentType DocumentType `json:"documentType"`

	// Tags holds extracted metadata dimensions.
	Tags Tags `json:"tags"`

	// Metadata holds derived statistics.
	Metadata DocMetadata `json:"metadata"`

	// SourceReference records provenance.
	SourceReference SourceReference `json:"sourceReference"`

	// ValidationScore is the fraction of rules passed, in [0,1].
	// Retained for audit even when the document was rejected.
	ValidationScore float64 `json:"validationScore"`

	// RejectionReasons lists every rule the document violated.
	// Empty for accepted documents.
	RejectionReasons []string `json:"rejectionReasons,omitempty"`
}

// TagValues returns the values of a named tag dimension.
// Unknown dimensions return nil.
func (d *Document) TagValues(dimension string) []string {
	switch dimension {
	case "sectors":
		return d.Tags.Sectors
	case "regions":
		return d.Tags.Regions
	case "initiatives":
		return d.Tags.Initiatives
	case "authors":
		return d.Tags.Authors
	case "departments":
		return d.Tags.Departments
	default:
		return nil
	}
}

// TagDimensions lists the queryable tag dimension names.
func TagDimensions() []string {
	return []string{"sectors", "regions", "initiatives", "authors", "departments"}
}
