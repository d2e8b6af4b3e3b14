// Package validate checks candidate documents against a configured rule
// set. Validation is pure and total: it never panics and never errors,
// even on zero-value documents. Every rule is evaluated independently and
// every violation is collected, so a batch report can show all the
// reasons a document failed rather than just the first.
package validate

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
)

// Validate applies every active rule in rules to doc and returns the
// collected outcome. A document with zero violations is accepted.
func Validate(doc *domain.Document, rules *domain.ValidationRules) domain.ValidationResult {
	total := rules.RuleCount()
	if total == 0 {
		return domain.ValidationResult{Accepted: true, Score: 1.0}
	}

	var reasons []string

	if len(rules.AllowedDomains) > 0 {
		if !domainAllowed(doc.URL, rules.AllowedDomains) {
			reasons = append(reasons, fmt.Sprintf("domain not allowed: %s", hostOf(doc.URL)))
		}
	}

	if rules.MinContentLength > 0 {
		if n := utf8.RuneCountInString(doc.Content); n < rules.MinContentLength {
			reasons = append(reasons, fmt.Sprintf("content too short: %d < %d", n, rules.MinContentLength))
		}
	}

	if rules.MinTitleLength > 0 {
		if n := utf8.RuneCountInString(doc.Title); n < rules.MinTitleLength {
			reasons = append(reasons, fmt.Sprintf("title too short: %d < %d", n, rules.MinTitleLength))
		}
	}

	if !rules.MinDate.IsZero() || !rules.MaxDate.IsZero() {
		if reason := checkDateWindow(doc, rules); reason != "" {
			reasons = append(reasons, reason)
		}
	}

	for _, dim := range rules.RequiredDimensions {
		if len(doc.TagValues(dim)) == 0 {
			reasons = append(reasons, fmt.Sprintf("required tag dimension empty: %s", dim))
		}
	}

	passed := total - len(reasons)
	return domain.ValidationResult{
		Accepted: len(reasons) == 0,
		Reasons:  reasons,
		Score:    float64(passed) / float64(total),
	}
}

// checkDateWindow validates PublishedDate against the inclusive window.
// A zero date only violates when a lower bound is set.
func checkDateWindow(doc *domain.Document, rules *domain.ValidationRules) string {
	d := doc.PublishedDate
	if d.IsZero() {
		if !rules.MinDate.IsZero() {
			return "published date missing"
		}
		return ""
	}
	if !rules.MinDate.IsZero() && d.Before(rules.MinDate) {
		return fmt.Sprintf("published date %s before window start %s",
			d.Format("2006-01-02"), rules.MinDate.Format("2006-01-02"))
	}
	if !rules.MaxDate.IsZero() && d.After(rules.MaxDate) {
		return fmt.Sprintf("published date %s after window end %s",
			d.Format("2006-01-02"), rules.MaxDate.Format("2006-01-02"))
	}
	return ""
}

// domainAllowed reports whether the URL host matches any allowed domain.
// A "*." prefix matches the bare domain and any subdomain.
func domainAllowed(rawURL string, allowed []string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}

	for _, entry := range allowed {
		entry = strings.ToLower(entry)
		if bare, ok := strings.CutPrefix(entry, "*."); ok {
			if host == bare || strings.HasSuffix(host, "."+bare) {
				return true
			}
			continue
		}
		if host == entry {
			return true
		}
	}
	return false
}

// hostOf extracts the lower-cased host from a URL, or "" when unparseable.
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
