package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidSource indicates a malformed SourceSpec.
	// Detected pre-flight; the only error that aborts a batch.
	ErrInvalidSource = errors.New("invalid source")

	// ErrUnsupportedKind indicates an unknown source kind reached the
	// fetcher factory.
	ErrUnsupportedKind = errors.New("unsupported source kind")

	// ErrFetcherClosed indicates the fetcher has been closed.
	ErrFetcherClosed = errors.New("fetcher closed")

	// ErrUnknownDimension indicates a tag query named a dimension the
	// store does not index.
	ErrUnknownDimension = errors.New("unknown tag dimension")
)

// FetchError is a network or parse failure retrieving a record or page.
// Recoverable: the pipeline retries it with backoff before recording it
// as a batch-item error. Failure is isolated to one page or one record,
// never the whole source.
type FetchError struct {
	// Source is the source ID the failure belongs to.
	Source string

	// URL is the specific request that failed, when known.
	URL string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("fetch %s (%s): %v", e.URL, e.Source, e.Cause)
	}
	return fmt.Sprintf("fetch (%s): %v", e.Source, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error { return e.Cause }

// NormalisationError indicates a raw record is fundamentally unusable:
// it carries no title, no content and no URL. Never retried.
type NormalisationError struct {
	// Reason describes what was missing.
	Reason string
}

// Error implements the error interface.
func (e *NormalisationError) Error() string {
	return "normalise: " + e.Reason
}

// StoreError is a persistence failure. Retried once, then surfaced as a
// fatal error for that item only.
type StoreError struct {
	// Op is the store operation that failed (e.g. "upsert").
	Op string

	// ID is the document ID involved, when known.
	ID string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.ID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error { return e.Cause }

// RateLimitError indicates a source answered with a rate-limit response.
type RateLimitError struct {
	// ResetAt is when the limit resets, when the source reported one.
	ResetAt time.Time
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return "rate limited"
	}
	return fmt.Sprintf("rate limited until %s", e.ResetAt.Format(time.RFC3339))
}
