package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFetchErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &FetchError{Source: "wb-api", URL: "https://example.org/page/2", Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "wb-api")
	assert.Contains(t, err.Error(), "https://example.org/page/2")
}

func TestFetchErrorWithoutURL(t *testing.T) {
	err := &FetchError{Source: "wb-feed", Cause: errors.New("timeout")}
	assert.Contains(t, err.Error(), "wb-feed")
	assert.Contains(t, err.Error(), "timeout")
}

func TestStoreErrorUnwrap(t *testing.T) {
	cause := errors.New("database is locked")
	err := &StoreError{Op: "upsert", ID: "abc123", Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "upsert")
	assert.Contains(t, err.Error(), "abc123")
}

func TestNormalisationError(t *testing.T) {
	err := &NormalisationError{Reason: "no title, no content, no URL"}
	assert.Contains(t, err.Error(), "no title")
}

func TestRateLimitError(t *testing.T) {
	assert.Equal(t, "rate limited", (&RateLimitError{}).Error())

	reset := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	withReset := &RateLimitError{ResetAt: reset}
	assert.Contains(t, withReset.Error(), "2025-03-01")
}
