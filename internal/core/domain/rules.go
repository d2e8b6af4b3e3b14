package domain

import "time"

// ValidationRules parameterises document acceptance. One rule set replaces
// the per-source ad hoc checks that tend to accrete in scraper code.
type ValidationRules struct {
	// AllowedDomains lists acceptable URL hosts. Entries may carry a
	// leading "*." wildcard matching any subdomain ("*.worldbank.org"
	// matches "docs.worldbank.org" and "worldbank.org" itself).
	// Empty list accepts any host.
	AllowedDomains []string `toml:"allowed_domains"`

	// MinContentLength is the minimum rune count of Content.
	MinContentLength int `toml:"min_content_length"`

	// MinTitleLength is the minimum rune count of Title.
	MinTitleLength int `toml:"min_title_length"`

	// MinDate is the inclusive lower bound on PublishedDate.
	// Zero disables the bound.
	MinDate time.Time `toml:"min_date"`

	// MaxDate is the inclusive upper bound on PublishedDate.
	// Zero disables the bound (the default).
	MaxDate time.Time `toml:"max_date"`

	// RequiredDimensions lists tag dimensions that must be non-empty
	// (e.g. "sectors"). Empty list requires nothing.
	RequiredDimensions []string `toml:"required_dimensions"`
}

// RuleCount returns how many rules are active for this rule set.
// Used to compute the validation score denominator.
func (r *ValidationRules) RuleCount() int {
	n := 0
	if len(r.AllowedDomains) > 0 {
		n++
	}
	if r.MinContentLength > 0 {
		n++
	}
	if r.MinTitleLength > 0 {
		n++
	}
	if !r.MinDate.IsZero() || !r.MaxDate.IsZero() {
		n++
	}
	n += len(r.RequiredDimensions)
	return n
}

// ValidationResult is the outcome of validating one document.
// It is a value, never an error: rejection is a legitimate negative
// outcome, recorded and reported, not thrown.
type ValidationResult struct {
	// Accepted is true when no rule was violated.
	Accepted bool `json:"accepted"`

	// Reasons lists every violated rule. All violations are collected,
	// not short-circuited, so a batch report can show everything wrong
	// with a document at once.
	Reasons []string `json:"reasons,omitempty"`

	// Score is the fraction of active rules passed, in [0,1].
	// 1.0 when no rules are active.
	Score float64 `json:"score"`
}
