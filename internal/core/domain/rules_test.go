package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRuleCount(t *testing.T) {
	empty := ValidationRules{}
	assert.Equal(t, 0, empty.RuleCount())

	full := ValidationRules{
		AllowedDomains:     []string{"*.worldbank.org"},
		MinContentLength:   200,
		MinTitleLength:     10,
		MinDate:            time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		RequiredDimensions: []string{"sectors", "regions"},
	}
	// domains + content + title + date window + two dimensions
	assert.Equal(t, 6, full.RuleCount())

	dateOnly := ValidationRules{MaxDate: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, 1, dateOnly.RuleCount())
}
