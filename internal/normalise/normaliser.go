// Package normalise converts raw candidate records from any source kind
// into the canonical Document shape. Normalisation is best-effort: it only
// fails when a record carries no title, no content and no URL. Everything
// derivable (ID, tags, word count, reading time, summary excerpt) is
// recomputed on every call, never copied from the source.
package normalise

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
	"github.com/bankwatch-labs/harvest-cli/internal/extract"
)

// maxExcerptLen caps generated summary excerpts.
const maxExcerptLen = 500

// maxExcerptSentences caps how many sentences a generated excerpt takes.
const maxExcerptSentences = 3

// wordsPerMinute is the reading speed used for reading time.
const wordsPerMinute = 200

// defaultLanguage is assumed when the source reports none.
const defaultLanguage = "en"

// Normaliser maps raw records into canonical documents.
type Normaliser struct {
	extractor *extract.Extractor
	now       func() time.Time
}

// New creates a normaliser using the given extractor.
func New(extractor *extract.Extractor) *Normaliser {
	return &Normaliser{extractor: extractor, now: time.Now}
}

// WithClock overrides the time source. Useful for testing.
func (n *Normaliser) WithClock(now func() time.Time) *Normaliser {
	n.now = now
	return n
}

// Normalise converts one raw record into a Document.
// Returns a *domain.NormalisationError only when the record is missing
// title AND content AND URL; any other shortfall produces a best-effort
// document.
func (n *Normaliser) Normalise(raw *domain.RawRecord) (*domain.Document, error) {
	if raw == nil || !raw.HasAnyField() {
		return nil, &domain.NormalisationError{Reason: "record has no title, no content and no URL"}
	}

	content := raw.Content
	if content == "" {
		content = raw.Summary
	}

	summary := raw.Summary
	if summary == "" {
		summary = Excerpt(content)
	}

	docType := domain.ParseDocumentType(raw.DocumentType)

	discoveredAt := raw.DiscoveredAt
	if discoveredAt.IsZero() {
		discoveredAt = n.now()
	}

	strategy := raw.FetchStrategy
	if strategy == "" {
		strategy = domain.StrategyDirect
	}

	published, inferred := n.publishedDate(raw, content, discoveredAt)

	language := raw.Language
	if language == "" {
		language = defaultLanguage
	}

	wordCount := len(strings.Fields(content))

	doc := &domain.Document{
		ID:            DeriveID(raw.URL, raw.Title, content),
		Title:         raw.Title,
		Summary:       summary,
		Content:       content,
		URL:           raw.URL,
		SourceURL:     raw.URL,
		PublishedDate: published,
		DocumentType:  docType,
		Tags:          n.extractor.Extract(docType, raw.Title, content, raw.URL),
		Metadata: domain.DocMetadata{
			Language:    language,
			WordCount:   wordCount,
			ReadingTime: readingTime(wordCount),
		},
		SourceReference: domain.SourceReference{
			SourceID:      raw.SourceID,
			DiscoveredAt:  discoveredAt,
			FetchStrategy: strategy,
			DateInferred:  inferred,
		},
	}

	return doc, nil
}

// publishedDate resolves the document date: explicit source field first,
// then the first date-shaped substring in content, then the discovery
// time. Both inference paths flag DateInferred so downstream consumers
// can discount low-confidence dates.
func (n *Normaliser) publishedDate(raw *domain.RawRecord, content string, discoveredAt time.Time) (time.Time, bool) {
	if !raw.PublishedDate.IsZero() {
		return truncateToDay(raw.PublishedDate), false
	}
	if d, ok := InferDate(content); ok {
		return d, true
	}
	return truncateToDay(discoveredAt), true
}

// DeriveID computes the stable document ID.
// For records with a URL the ID is a pure function of the URL, so
// re-ingesting the same location always upserts to the same key. Records
// without a URL (title- or content-only) hash their text instead.
func DeriveID(sourceURL, title, content string) string {
	var sum [32]byte
	if sourceURL != "" {
		sum = sha256.Sum256([]byte(strings.TrimSpace(sourceURL)))
	} else {
		sum = sha256.Sum256([]byte(title + "\x00" + content))
	}
	return hex.EncodeToString(sum[:12])
}

// Excerpt generates a summary from the leading sentences of content:
// up to three sentences, capped at 500 characters.
func Excerpt(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}

	sentences := 0
	end := len(content)
	for i, r := range content {
		if r == '.' || r == '!' || r == '?' {
			// Sentence boundary: terminator followed by space or EOT.
			if i+1 >= len(content) || unicode.IsSpace(rune(content[i+1])) {
				sentences++
				if sentences >= maxExcerptSentences {
					end = i + 1
					break
				}
			}
		}
	}

	excerpt := content[:end]
	if utf8.RuneCountInString(excerpt) > maxExcerptLen {
		cut := excerpt[:runeBoundary(excerpt, maxExcerptLen)]
		// Avoid splitting a word at the cap.
		if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
			cut = cut[:idx]
		}
		excerpt = cut
	}
	return strings.TrimSpace(excerpt)
}

// runeBoundary returns the byte offset of the n-th rune in s. The cap
// counts characters, not bytes, so multibyte text is never split
// mid-rune.
func runeBoundary(s string, n int) int {
	seen := 0
	for i := range s {
		if seen == n {
			return i
		}
		seen++
	}
	return len(s)
}

// readingTime is ceil(words/200) minutes.
func readingTime(wordCount int) int {
	if wordCount == 0 {
		return 0
	}
	return (wordCount + wordsPerMinute - 1) / wordsPerMinute
}

// truncateToDay drops the time component, keeping the calendar date in UTC.
func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
