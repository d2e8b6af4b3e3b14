// Package extract derives tag metadata from document text.
// All functions are pure and total: the same inputs always produce the
// same tags, and absence of a match yields empty sets, never an error.
//
// Matching is case-insensitive substring matching over the concatenated
// title and content. This is a known precision limitation, kept
// deliberately: tokenised or word-boundary matching would change accepted
// tag sets, and the tag tables are tuned against substring semantics.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
)

// Tables holds the keyword configuration for every tag dimension.
// Tables are data, not code: they load from the config file so dimensions
// can be extended without redeploying the extractor.
type Tables struct {
	// Sectors maps a sector tag to the keywords that imply it.
	Sectors map[string][]string `toml:"sectors"`

	// Regions maps a region tag to the keywords that imply it.
	Regions map[string][]string `toml:"regions"`

	// Departments maps a department tag to the keywords that imply it.
	Departments map[string][]string `toml:"departments"`

	// Initiatives lists named programmes, matched by their own name.
	Initiatives []string `toml:"initiatives"`

	// VIPAuthors lists names whose presence in content raises priority.
	VIPAuthors []string `toml:"vip_authors"`
}

// bylinePattern matches "By <Capitalized Word Sequence>" author credits.
var bylinePattern = regexp.MustCompile(`\bBy ([A-Z][A-Za-z'-]+(?: [A-Z][A-Za-z'-]+){1,3})`)

// archivedPathPattern marks URLs whose path indicates archived material.
var archivedPathPattern = regexp.MustCompile(`/archives?/`)

// Extractor derives tags from document text using configured tables.
type Extractor struct {
	tables Tables
}

// New creates an extractor over the given tables.
func New(tables Tables) *Extractor {
	return &Extractor{tables: tables}
}

// Extract derives the full tag set for a document.
// The document type participates only in the priority rule; every other
// dimension is a pure function of title and content. The URL participates
// only in the status rule.
func (e *Extractor) Extract(docType domain.DocumentType, title, content, url string) domain.Tags {
	haystack := strings.ToLower(title + " " + content)

	return domain.Tags{
		Sectors:     matchCategories(haystack, e.tables.Sectors),
		Regions:     matchCategories(haystack, e.tables.Regions),
		Departments: matchCategories(haystack, e.tables.Departments),
		Initiatives: matchNames(haystack, e.tables.Initiatives),
		Authors:     extractAuthors(content),
		Priority:    e.priority(docType, haystack),
		Status:      status(url),
	}
}

// priority applies the precedence order: the type rule is evaluated before
// the VIP-author content rule, so a report stays medium even when a VIP
// author appears in its text.
func (e *Extractor) priority(docType domain.DocumentType, haystack string) domain.Priority {
	switch docType {
	case domain.TypeSpeech, domain.TypeStrategy:
		return domain.PriorityHigh
	case domain.TypeReport, domain.TypeInitiative:
		return domain.PriorityMedium
	}
	for _, name := range e.tables.VIPAuthors {
		if name != "" && strings.Contains(haystack, strings.ToLower(name)) {
			return domain.PriorityHigh
		}
	}
	return domain.PriorityLow
}

// status derives publication status from the URL path.
func status(url string) domain.Status {
	if archivedPathPattern.MatchString(strings.ToLower(url)) {
		return domain.StatusArchived
	}
	return domain.StatusCurrent
}

// matchCategories returns every category whose keyword list has at least
// one member contained in the haystack. Results are sorted for
// deterministic output.
func matchCategories(haystack string, table map[string][]string) []string {
	var matched []string
	for category, keywords := range table {
		for _, kw := range keywords {
			if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
				matched = append(matched, category)
				break
			}
		}
	}
	sort.Strings(matched)
	return matched
}

// matchNames returns every name contained in the haystack, matched by its
// own lower-cased form.
func matchNames(haystack string, names []string) []string {
	var matched []string
	for _, name := range names {
		if name != "" && strings.Contains(haystack, strings.ToLower(name)) {
			matched = append(matched, name)
		}
	}
	sort.Strings(matched)
	return matched
}

// extractAuthors pulls byline names out of content and deduplicates them
// case-sensitively, preserving first-seen order.
func extractAuthors(content string) []string {
	matches := bylinePattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	var authors []string
	for _, m := range matches {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		authors = append(authors, name)
	}
	return authors
}

// DefaultTables returns the built-in tag tables. The config file can
// replace or extend any of them.
func DefaultTables() Tables {
	return Tables{
		Sectors: map[string][]string{
			"energy":      {"energy", "electricity", "power grid", "renewable"},
			"education":   {"education", "school", "learning", "literacy"},
			"health":      {"health", "disease", "vaccine", "nutrition"},
			"agriculture": {"agriculture", "farming", "food security", "crop"},
			"water":       {"water", "sanitation", "irrigation"},
			"transport":   {"transport", "infrastructure", "railway", "highway"},
			"digital":     {"digital", "broadband", "connectivity", "technology"},
			"finance":     {"finance", "banking", "investment", "capital market"},
			"climate":     {"climate", "emission", "decarboni", "adaptation"},
			"gender":      {"gender", "women", "girls"},
		},
		Regions: map[string][]string{
			"africa":              {"africa", "sahel", "sub-saharan"},
			"east-asia-pacific":   {"east asia", "pacific", "southeast asia"},
			"europe-central-asia": {"europe", "central asia", "balkans"},
			"latin-america":       {"latin america", "caribbean", "south america"},
			"middle-east":         {"middle east", "north africa", "mena"},
			"south-asia":          {"south asia", "india", "bangladesh", "pakistan"},
		},
		Departments: map[string][]string{
			"operations":     {"operations", "country office", "project team"},
			"communications": {"press release", "media contact", "communications"},
			"research":       {"working paper", "research", "study finds"},
			"treasury":       {"bond", "treasury", "capital increase"},
		},
		Initiatives: []string{
			"Mission 300",
			"Livable Planet",
			"Knowledge Bank",
			"IDA",
		},
		VIPAuthors: nil,
	}
}
