package normalise

import (
	"regexp"
	"time"
)

// datePatterns pairs a recogniser for one date shape with its parse
// layouts. Scanning tries every pattern and takes the earliest match in
// the content, so "the first date-shaped substring" wins regardless of
// which shape it has.
var datePatterns = []struct {
	re      *regexp.Regexp
	layouts []string
}{
	{
		// 2024-11-04
		re:      regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`),
		layouts: []string{"2006-01-02"},
	},
	{
		// 11-04-2024 or 11/04/2024
		re:      regexp.MustCompile(`\b(\d{2}[-/]\d{2}[-/]\d{4})\b`),
		layouts: []string{"01-02-2006", "01/02/2006"},
	},
	{
		// November 4, 2024 / Nov 4, 2024
		re:      regexp.MustCompile(`\b([A-Z][a-z]+ \d{1,2}, \d{4})\b`),
		layouts: []string{"January 2, 2006", "Jan 2, 2006"},
	},
}

// InferDate scans content for the first date-shaped substring and parses
// it. Returns the parsed calendar date and true, or the zero time and
// false when nothing parseable is found.
func InferDate(content string) (time.Time, bool) {
	bestIdx := -1
	var best time.Time

	for _, p := range datePatterns {
		locs := p.re.FindAllStringSubmatchIndex(content, -1)
		for _, loc := range locs {
			start := loc[2]
			candidate := content[loc[2]:loc[3]]
			parsed, ok := parseAny(candidate, p.layouts)
			if !ok {
				continue // date-shaped but not a real date, keep scanning
			}
			if bestIdx == -1 || start < bestIdx {
				bestIdx = start
				best = parsed
			}
			break // later matches of this pattern are never earlier
		}
	}

	if bestIdx == -1 {
		return time.Time{}, false
	}
	return best, true
}

// parseAny tries each layout in order.
func parseAny(s string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
